package record

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeRows reads a JSON array of objects, or an object with a "rows"
// array, from r.
//
// Numbers keep full precision: integral values become int64, others
// float64.
func DecodeRows(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	var items []any
	switch v := doc.(type) {
	case []any:
		items = v
	case map[string]any:
		rows, ok := v["rows"].([]any)
		if !ok {
			return nil, fmt.Errorf("decode rows: object has no \"rows\" array")
		}
		items = rows
	default:
		return nil, fmt.Errorf("decode rows: want array or object, got %T", doc)
	}

	out := make([]Record, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode rows: row %d is %T, not an object", i, item)
		}
		out[i] = fromJSONObject(m)
	}
	return out, nil
}

// FromJSON converts values decoded with json.Decoder.UseNumber into the
// kinds the engine works with.
func FromJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = FromJSON(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = FromJSON(val[k])
		}
		return val
	default:
		return v
	}
}

func fromJSONObject(m map[string]any) Record {
	out := make(Record, len(m))
	for k, v := range m {
		out[k] = FromJSON(v)
	}
	return out
}
