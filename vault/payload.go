package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	centersKey       = "centers"
	legacyCentersKey = "centres"
	metadataKey      = "metadata"
)

// document is the canonical plaintext shape written by Save.
type document struct {
	Metadata map[string]any `json:"metadata"`
	Centers  []any          `json:"centers"`
}

type payloadShape int

const (
	shapeInvalid payloadShape = iota
	shapeDocument
	shapeBareList
)

func classify(v any) payloadShape {
	switch v.(type) {
	case map[string]any:
		return shapeDocument
	case []any:
		return shapeBareList
	}
	return shapeInvalid
}

// ParsePayload decodes plaintext JSON into a Payload. It accepts either an
// object with "metadata" and "centers" (or legacy "centres"), or a bare array
// of center entries with empty metadata. Numbers are kept as json.Number.
func ParsePayload(plaintext []byte) (*Payload, error) {
	if !utf8.Valid(plaintext) {
		return nil, fmt.Errorf("%w: plaintext is not valid UTF-8", ErrFormat)
	}

	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrFormat, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: invalid JSON: trailing data", ErrFormat)
	}

	switch classify(doc) {
	case shapeDocument:
		return normalizeDocument(doc.(map[string]any))
	case shapeBareList:
		return &Payload{Metadata: map[string]any{}, Centers: doc.([]any)}, nil
	}
	return nil, fmt.Errorf("%w: invalid vault structure", ErrFormat)
}

func normalizeDocument(obj map[string]any) (*Payload, error) {
	p := &Payload{Metadata: map[string]any{}}

	if raw, ok := obj[metadataKey]; ok && raw != nil {
		md, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: metadata is not an object", ErrFormat)
		}
		p.Metadata = md
	}

	raw, ok := obj[centersKey]
	if !ok || raw == nil {
		raw, ok = obj[legacyCentersKey]
	}
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: vault has no centers list", ErrFormat)
	}
	centers, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: centers is not an array", ErrFormat)
	}
	p.Centers = centers
	return p, nil
}

func encodePayload(p *Payload) ([]byte, error) {
	doc := document{Metadata: p.Metadata, Centers: p.Centers}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if doc.Centers == nil {
		doc.Centers = []any{}
	}
	return json.Marshal(doc)
}

// Describe renders a short status line from the version and generated_at
// metadata fields.
func (p *Payload) Describe() string {
	version := metaString(p.Metadata, "version")
	generated := metaString(p.Metadata, "generated_at")
	switch {
	case version != "" && generated != "":
		return fmt.Sprintf("Vault %s (%s)", version, generated)
	case version != "":
		return "Vault " + version
	}
	return "Vault"
}

func metaString(md map[string]any, key string) string {
	v, ok := md[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
