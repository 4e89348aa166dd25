package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/reportcore/internal/record"
)

// marshalRow converts a record to JSON TEXT for storage.
// Keys are sorted (encoding/json sorts map keys) and HTML escaping is off,
// so identical records always store identical text.
func marshalRow(r record.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(r)); err != nil {
		return "", fmt.Errorf("marshal row: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalRow parses JSON TEXT into a record.
//
// Numbers are decoded via json.Number so integers beyond 2^53 keep their
// precision (see record.FromJSON).
func unmarshalRow(data string) (record.Record, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal row: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("unmarshal row: not an object")
	}

	out := make(record.Record, len(m))
	for k, v := range m {
		out[k] = record.FromJSON(v)
	}
	return out, nil
}
