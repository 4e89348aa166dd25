package record

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the string layouts AsTime accepts, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// IsNull reports whether v represents an absent value.
func IsNull(v any) bool {
	return v == nil
}

// isNumericKind reports whether v is stored as a number (not a numeric string).
func isNumericKind(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// AsNumber coerces v to a float64.
//
// Go numeric kinds, json.Number and strings holding a decimal number are
// accepted. Booleans, empty strings, NaN and everything else are not.
func AsNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case float32:
		f = float64(val)
	case float64:
		f = val
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// AsTime coerces v to a time.Time. Only time.Time values and strings in one
// of the accepted layouts qualify; numbers are never treated as timestamps.
func AsTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// String renders a non-null value in the canonical textual form used by
// string operators, equality fallback and group keys.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Equal reports value equality as used by the equals/in operators and the
// distinct reduction.
//
// nil equals only nil. Two values stored as numbers compare numerically, so
// int64(3) equals float64(3). Anything else compares by String form.
func Equal(a, b any) bool {
	aNull, bNull := IsNull(a), IsNull(b)
	if aNull || bNull {
		return aNull && bNull
	}
	if isNumericKind(a) && isNumericKind(b) {
		af, aok := AsNumber(a)
		bf, bok := AsNumber(b)
		return aok && bok && af == bf
	}
	return String(a) == String(b)
}
