package engine

import (
	"strings"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Evaluate reports whether r satisfies f.
//
// Ordering operators coerce both operands to numbers (or, failing that, to
// times); if either side cannot be coerced the result is false. String
// operators are case-insensitive. between is inclusive on both bounds.
// Evaluate never panics on unexpected value kinds.
func Evaluate(r record.Record, f query.Filter) bool {
	v, present := r.Get(f.FieldID)

	switch f.Operator {
	case query.OpIsNull:
		return !present
	case query.OpIsNotNull:
		return present

	case query.OpEquals:
		return record.Equal(v, f.Value)
	case query.OpNotEquals:
		return !record.Equal(v, f.Value)

	case query.OpContains:
		return present && strings.Contains(lower(v), lower(f.Value))
	case query.OpNotContains:
		return !present || !strings.Contains(lower(v), lower(f.Value))
	case query.OpStartsWith:
		return present && strings.HasPrefix(lower(v), lower(f.Value))
	case query.OpEndsWith:
		return present && strings.HasSuffix(lower(v), lower(f.Value))

	case query.OpGreaterThan:
		c, ok := compareOrdered(v, f.Value)
		return ok && c > 0
	case query.OpGreaterThanOrEqual:
		c, ok := compareOrdered(v, f.Value)
		return ok && c >= 0
	case query.OpLessThan:
		c, ok := compareOrdered(v, f.Value)
		return ok && c < 0
	case query.OpLessThanOrEqual:
		c, ok := compareOrdered(v, f.Value)
		return ok && c <= 0

	case query.OpBetween:
		if len(f.Values) < 2 {
			return false
		}
		lo, okLo := compareOrdered(v, f.Values[0])
		hi, okHi := compareOrdered(v, f.Values[1])
		return okLo && okHi && lo >= 0 && hi <= 0

	case query.OpIn:
		return containsValue(f.Values, v)
	case query.OpNotIn:
		return !containsValue(f.Values, v)

	default:
		return false
	}
}

// Matches reports whether r satisfies every filter (logical AND).
// An empty filter list matches every record.
func Matches(r record.Record, filters []query.Filter) bool {
	for _, f := range filters {
		if !Evaluate(r, f) {
			return false
		}
	}
	return true
}

// ApplyFilters returns the records of rows that satisfy every filter, in
// input order. The input slice is not modified; records are shared.
func ApplyFilters(rows []record.Record, filters []query.Filter) []record.Record {
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if Matches(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

// compareOrdered compares a and b numerically, or chronologically when both
// are times. ok is false when neither coercion applies to both operands.
func compareOrdered(a, b any) (int, bool) {
	if af, ok := record.AsNumber(a); ok {
		if bf, ok := record.AsNumber(b); ok {
			return cmpFloat(af, bf), true
		}
		return 0, false
	}
	if at, ok := record.AsTime(a); ok {
		if bt, ok := record.AsTime(b); ok {
			return at.Compare(bt), true
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if record.Equal(v, candidate) {
			return true
		}
	}
	return false
}

func lower(v any) string {
	if record.IsNull(v) {
		return ""
	}
	return strings.ToLower(record.String(v))
}
