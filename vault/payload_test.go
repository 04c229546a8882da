package vault

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadShapes(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		metadata map[string]any
		centers  int
	}{
		{"document", `{"metadata":{"version":"2"},"centers":[{},{}]}`, map[string]any{"version": "2"}, 2},
		{"legacy key", `{"centres":[{}]}`, map[string]any{}, 1},
		{"current key wins", `{"centers":[{}],"centres":[{},{},{}]}`, map[string]any{}, 1},
		{"empty centers", `{"metadata":{},"centers":[]}`, map[string]any{}, 0},
		{"null metadata", `{"metadata":null,"centers":[]}`, map[string]any{}, 0},
		{"null centers falls back", `{"centers":null,"centres":[{}]}`, map[string]any{}, 1},
		{"bare list", `[{"Codi":"1"}]`, map[string]any{}, 1},
		{"surrounding whitespace", " \n[]\n ", map[string]any{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePayload([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.metadata, p.Metadata)
			assert.Len(t, p.Centers, tc.centers)
		})
	}
}

func TestParsePayloadErrors(t *testing.T) {
	for name, in := range map[string][]byte{
		"invalid utf8":     {'[', 0xff, ']'},
		"empty":            {},
		"number":           []byte(`42`),
		"null":             []byte(`null`),
		"metadata string":  []byte(`{"metadata":"x","centers":[]}`),
		"centers string":   []byte(`{"centers":"x"}`),
		"no centers":       []byte(`{"metadata":{}}`),
		"truncated object": []byte(`{"centers":[`),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePayload(in)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestParsePayloadKeepsNumbers(t *testing.T) {
	p, err := ParsePayload([]byte(`{"metadata":{"count":12345678901234567890},"centers":[]}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), p.Metadata["count"])
}

func TestEncodePayloadDefaults(t *testing.T) {
	raw, err := encodePayload(&Payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{},"centers":[]}`, string(raw))
}
