package query

// Mode selects the execution path of a query.
type Mode int

const (
	// ModePassThrough returns filtered rows unchanged. Validation normally
	// rejects such queries; the engine still handles them.
	ModePassThrough Mode = iota
	// ModeProjection keeps one output row per input row with only the
	// dimension fields.
	ModeProjection
	// ModeAggregation groups by dimensions and reduces measures.
	ModeAggregation
)

// String returns the lowercase mode name used in logs and metrics labels.
func (m Mode) String() string {
	switch m {
	case ModeProjection:
		return "projection"
	case ModeAggregation:
		return "aggregation"
	default:
		return "passthrough"
	}
}

// ResolveMode decides the execution path of q.
//
// Any measure, or any dimension carrying an explicit aggregation, selects
// aggregation. Otherwise dimensions alone select projection.
func ResolveMode(q DataQuery) Mode {
	if len(q.Measures) > 0 {
		return ModeAggregation
	}
	for _, d := range q.Dimensions {
		if d.Aggregation != "" {
			return ModeAggregation
		}
	}
	if len(q.Dimensions) > 0 {
		return ModeProjection
	}
	return ModePassThrough
}
