package engine

import (
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// group is one bucket of rows sharing the same grouping tuple.
type group struct {
	values []any // first-seen value of each grouping field
	rows   []record.Record
}

// Aggregate groups rows by the dimension values and reduces each measure
// within every group.
//
// Dimensions that carry an explicit aggregation are reduced like measures
// instead of grouped by. With no grouping dimensions the whole input
// collapses to exactly one record, even when rows is empty.
//
// Groups are emitted in first-seen order. That order is incidental; only
// the Sort stage gives the result a defined order.
func Aggregate(rows []record.Record, dimensions, measures []query.Field) []record.Record {
	groupBy, reducers := splitFields(dimensions, measures)

	var groups []*group
	if len(groupBy) == 0 {
		groups = []*group{{rows: rows}}
	} else {
		groups = groupRows(rows, groupBy)
	}

	out := make([]record.Record, 0, len(groups))
	for _, g := range groups {
		rec := make(record.Record, len(groupBy)+len(reducers))
		for i, d := range groupBy {
			rec[d.ID] = g.values[i]
		}
		for _, m := range reducers {
			rec[m.ID] = reduce(columnValues(g.rows, m.ID), m.Aggregation)
		}
		out = append(out, rec)
	}
	return out
}

// Project keeps one record per input row containing only the dimension
// fields. No grouping or de-duplication happens.
func Project(rows []record.Record, dimensions []query.Field) []record.Record {
	ids := make([]string, len(dimensions))
	for i, d := range dimensions {
		ids[i] = d.ID
	}

	out := make([]record.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Project(ids)
	}
	return out
}

// splitFields separates grouping fields from fields to reduce.
func splitFields(dimensions, measures []query.Field) (groupBy, reducers []query.Field) {
	for _, d := range dimensions {
		if d.Aggregation != "" {
			reducers = append(reducers, d)
			continue
		}
		groupBy = append(groupBy, d)
	}
	reducers = append(reducers, measures...)
	return groupBy, reducers
}

func groupRows(rows []record.Record, groupBy []query.Field) []*group {
	index := make(map[record.Key]*group)
	var order []*group

	for _, r := range rows {
		values := make([]any, len(groupBy))
		for i, d := range groupBy {
			values[i] = r[d.ID]
		}
		key := record.KeyOf(values...)

		g, ok := index[key]
		if !ok {
			g = &group{values: values}
			index[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	}
	return order
}

func columnValues(rows []record.Record, field string) []any {
	values := make([]any, len(rows))
	for i, r := range rows {
		values[i] = r[field]
	}
	return values
}

// reduce applies one aggregation function to the values of a group.
//
// Numeric reductions skip null and non-numeric values. Empty sets give
// sum 0, avg 0, count 0, distinct 0 and nil for min and max. Unknown or
// missing functions return the group's first value.
func reduce(values []any, agg query.Aggregation) any {
	switch agg {
	case query.AggSum:
		sum, _ := sumNumbers(values)
		return sum
	case query.AggAvg:
		sum, n := sumNumbers(values)
		if n == 0 {
			return 0.0
		}
		return sum / float64(n)
	case query.AggCount:
		n := 0
		for _, v := range values {
			if !record.IsNull(v) {
				n++
			}
		}
		return n
	case query.AggMin:
		return extremum(values, func(candidate, current float64) bool { return candidate < current })
	case query.AggMax:
		return extremum(values, func(candidate, current float64) bool { return candidate > current })
	case query.AggDistinct:
		seen := make(map[record.Key]struct{})
		for _, v := range values {
			if record.IsNull(v) {
				continue
			}
			seen[record.KeyOf(v)] = struct{}{}
		}
		return len(seen)
	default:
		if len(values) == 0 {
			return nil
		}
		return values[0]
	}
}

func sumNumbers(values []any) (float64, int) {
	var sum float64
	n := 0
	for _, v := range values {
		if f, ok := record.AsNumber(v); ok {
			sum += f
			n++
		}
	}
	return sum, n
}

// extremum returns the value preferred by better, or nil when no value is numeric.
func extremum(values []any, better func(candidate, current float64) bool) any {
	var best float64
	found := false
	for _, v := range values {
		f, ok := record.AsNumber(v)
		if !ok {
			continue
		}
		if !found || better(f, best) {
			best = f
			found = true
		}
	}
	if !found {
		return nil
	}
	return best
}
