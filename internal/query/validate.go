package query

import "fmt"

const (
	// MaxRecommendedLimit is the page size above which Validate warns.
	MaxRecommendedLimit = 10000
	// MaxRecommendedDimensions is the grouping width above which Validate warns.
	MaxRecommendedDimensions = 5
)

// Validation messages shared with callers that match on them.
const (
	MsgNoSelection    = "no dimension or measure selected"
	MsgMissingSource  = "missing data source"
	MsgLargeLimit     = "large limit (>10000) may impact performance"
	MsgManyDimensions = "more than 5 grouping dimensions may produce a large number of groups"
	MsgOffsetIgnored  = "offset without limit is ignored"
)

// ValidationResult is the outcome of a pre-flight check.
//
// Errors block execution. Warnings are advisory and never affect Valid.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks q for structural problems and risky settings.
// It is a pure function and never mutates q.
func Validate(q DataQuery) ValidationResult {
	v := &validator{
		errors:   []string{},
		warnings: []string{},
	}
	v.validateQuery(q)

	return ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
}

// validator accumulates findings during a single Validate call.
type validator struct {
	errors   []string
	warnings []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q DataQuery) {
	if len(q.Dimensions) == 0 && len(q.Measures) == 0 {
		v.addError(MsgNoSelection)
	}
	if q.DataSourceID == "" {
		v.addError(MsgMissingSource)
	}

	for i, d := range q.Dimensions {
		v.validateField("dimension", i, d)
	}
	for i, m := range q.Measures {
		v.validateField("measure", i, m)
	}
	for i, f := range q.Filters {
		v.validateFilter(i, f)
	}
	for i, s := range q.Sorts {
		v.validateSort(i, s)
	}

	if q.Limit != nil {
		if *q.Limit < 0 {
			v.addError("limit must not be negative (got %d)", *q.Limit)
		} else if *q.Limit > MaxRecommendedLimit {
			v.addWarning(MsgLargeLimit)
		}
	}
	if q.Offset != nil {
		if *q.Offset < 0 {
			v.addError("offset must not be negative (got %d)", *q.Offset)
		} else if q.Limit == nil && *q.Offset > 0 {
			v.addWarning(MsgOffsetIgnored)
		}
	}

	if len(q.Dimensions) > MaxRecommendedDimensions {
		v.addWarning(MsgManyDimensions)
	}
}

func (v *validator) validateField(kind string, i int, f Field) {
	if f.ID == "" {
		v.addError("%s %d: missing field id", kind, i)
	}
	if f.Aggregation != "" && !f.Aggregation.Known() {
		// Unknown reductions fall back to the first value of the group.
		v.addWarning("%s %q: unknown aggregation %q falls back to first value", kind, f.ID, f.Aggregation)
	}
}

func (v *validator) validateFilter(i int, f Filter) {
	if f.FieldID == "" {
		v.addError("filter %d: missing field", i)
	}
	if f.Operator == "" {
		v.addError("filter %d: missing operator", i)
		return
	}
	if !f.Operator.Known() {
		v.addError("filter %d: unknown operator %q", i, f.Operator)
		return
	}

	switch {
	case f.Operator.TakesValues():
		if f.Values == nil {
			v.addError("filter %d: operator %s requires a values array", i, f.Operator)
		} else if f.Operator == OpBetween && len(f.Values) < 2 {
			v.addError("filter %d: operator between requires two values", i)
		}
	case f.Operator.Unary():
		// isNull / isNotNull take no operand.
	default:
		if f.Value == nil {
			v.addError("filter %d: operator %s requires a value", i, f.Operator)
		}
	}
}

func (v *validator) validateSort(i int, s SortKey) {
	if s.FieldID == "" {
		v.addError("sort %d: missing field", i)
	}
	switch s.Direction {
	case "", Asc, Desc:
	default:
		v.addError("sort %d: unknown direction %q", i, s.Direction)
	}
}
