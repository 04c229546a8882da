// Package credentials validates decrypted vault entries into center records
// and serves in-memory lookups over them.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fahmaliyi/wifivault/vault"
	"github.com/sirupsen/logrus"
)

// Source keys of a center entry in the vault document.
const (
	FieldCode     = "Codi"
	FieldName     = "Centre"
	FieldUsername = "Usuari"
	FieldPassword = "Contrasenya"
)

var requiredFields = []string{FieldCode, FieldName, FieldUsername, FieldPassword}

// ErrInvalidStructure is returned when the centers container is not a list.
// It is a format error for the whole load.
var ErrInvalidStructure = fmt.Errorf("%w: centers is not a list", vault.ErrFormat)

var (
	errNotObject = errors.New("entry is not an object")
)

// CenterCredentials holds the WiFi login of one educational center.
type CenterCredentials struct {
	CenterCode string
	CenterName string
	Username   string
	Password   string
}

// Matches reports whether query is a case-insensitive substring of the code
// or the name. An empty query matches every center.
func (c CenterCredentials) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.CenterCode), q) ||
		strings.Contains(strings.ToLower(c.CenterName), q)
}

// ParseCenters validates raw vault entries. Entries that are not objects or
// lack a usable required field are logged and skipped; the number skipped is
// returned. Only a raw value that is not a list fails the whole parse.
func ParseCenters(raw any, log logrus.FieldLogger) ([]CenterCredentials, int, error) {
	if log == nil {
		log = discardLogger()
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, 0, ErrInvalidStructure
	}

	centers := make([]CenterCredentials, 0, len(entries))
	skipped := 0
	for i, entry := range entries {
		c, err := parseEntry(entry)
		if err != nil {
			skipped++
			log.WithFields(logrus.Fields{"index": i, "reason": err.Error()}).Warn("skipping invalid center entry")
			continue
		}
		centers = append(centers, c)
	}
	return centers, skipped, nil
}

func parseEntry(entry any) (CenterCredentials, error) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return CenterCredentials{}, errNotObject
	}

	values := make([]string, len(requiredFields))
	for i, field := range requiredFields {
		v, ok := obj[field]
		if !ok {
			return CenterCredentials{}, fmt.Errorf("missing required field %s", field)
		}
		s, err := fieldString(v)
		if err != nil {
			return CenterCredentials{}, fmt.Errorf("field %s: %w", field, err)
		}
		if s == "" {
			return CenterCredentials{}, fmt.Errorf("field %s is empty", field)
		}
		values[i] = s
	}

	return CenterCredentials{
		CenterCode: values[0],
		CenterName: values[1],
		Username:   values[2],
		Password:   values[3],
	}, nil
}

// fieldString coerces a scalar JSON value to trimmed text.
func fieldString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), nil
	case json.Number:
		return x.String(), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "", errors.New("value is null")
	}
	return "", fmt.Errorf("unsupported value type %T", v)
}
