package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
	"github.com/roach88/reportcore/internal/testutil"
)

func TestEvaluate_Operators(t *testing.T) {
	row := record.Record{
		"name":   "Widget Pro",
		"amount": 42,
		"price":  "19.5",
		"day":    "2024-03-02",
		"empty":  nil,
		"flag":   true,
	}

	tests := []struct {
		name   string
		filter query.Filter
		want   bool
	}{
		{"equals string", query.Filter{FieldID: "name", Operator: query.OpEquals, Value: "Widget Pro"}, true},
		{"equals is case sensitive", query.Filter{FieldID: "name", Operator: query.OpEquals, Value: "widget pro"}, false},
		{"equals numeric across kinds", query.Filter{FieldID: "amount", Operator: query.OpEquals, Value: 42.0}, true},
		{"equals null", query.Filter{FieldID: "empty", Operator: query.OpEquals, Value: nil}, true},
		{"notEquals", query.Filter{FieldID: "amount", Operator: query.OpNotEquals, Value: 41}, true},
		{"contains ignores case", query.Filter{FieldID: "name", Operator: query.OpContains, Value: "GET P"}, true},
		{"contains on null", query.Filter{FieldID: "empty", Operator: query.OpContains, Value: "x"}, false},
		{"notContains", query.Filter{FieldID: "name", Operator: query.OpNotContains, Value: "gadget"}, true},
		{"notContains on null", query.Filter{FieldID: "missing", Operator: query.OpNotContains, Value: "x"}, true},
		{"startsWith", query.Filter{FieldID: "name", Operator: query.OpStartsWith, Value: "widget"}, true},
		{"endsWith", query.Filter{FieldID: "name", Operator: query.OpEndsWith, Value: "PRO"}, true},
		{"endsWith miss", query.Filter{FieldID: "name", Operator: query.OpEndsWith, Value: "widget"}, false},
		{"greaterThan", query.Filter{FieldID: "amount", Operator: query.OpGreaterThan, Value: 41}, true},
		{"greaterThan equal bound", query.Filter{FieldID: "amount", Operator: query.OpGreaterThan, Value: 42}, false},
		{"greaterThanOrEqual", query.Filter{FieldID: "amount", Operator: query.OpGreaterThanOrEqual, Value: 42}, true},
		{"lessThan numeric string", query.Filter{FieldID: "price", Operator: query.OpLessThan, Value: 20}, true},
		{"lessThanOrEqual", query.Filter{FieldID: "price", Operator: query.OpLessThanOrEqual, Value: "19.5"}, true},
		{"greaterThan uncoercible", query.Filter{FieldID: "name", Operator: query.OpGreaterThan, Value: 1}, false},
		{"lessThan uncoercible", query.Filter{FieldID: "name", Operator: query.OpLessThan, Value: 1}, false},
		{"greaterThan null", query.Filter{FieldID: "empty", Operator: query.OpGreaterThan, Value: 0}, false},
		{"greaterThan bool", query.Filter{FieldID: "flag", Operator: query.OpGreaterThan, Value: 0}, false},
		{"greaterThan date", query.Filter{FieldID: "day", Operator: query.OpGreaterThan, Value: "2024-03-01"}, true},
		{"lessThan date", query.Filter{FieldID: "day", Operator: query.OpLessThan, Value: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, false},
		{"in", query.Filter{FieldID: "amount", Operator: query.OpIn, Values: []any{1, 42}}, true},
		{"in miss", query.Filter{FieldID: "amount", Operator: query.OpIn, Values: []any{1, 2}}, false},
		{"notIn", query.Filter{FieldID: "amount", Operator: query.OpNotIn, Values: []any{1, 2}}, true},
		{"isNull explicit nil", query.Filter{FieldID: "empty", Operator: query.OpIsNull}, true},
		{"isNull absent key", query.Filter{FieldID: "missing", Operator: query.OpIsNull}, true},
		{"isNull present", query.Filter{FieldID: "name", Operator: query.OpIsNull}, false},
		{"isNotNull", query.Filter{FieldID: "name", Operator: query.OpIsNotNull}, true},
		{"isNotNull absent", query.Filter{FieldID: "missing", Operator: query.OpIsNotNull}, false},
		{"unknown operator", query.Filter{FieldID: "name", Operator: "like", Value: "W%"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(row, tt.filter))
		})
	}
}

func TestEvaluate_BetweenIsInclusive(t *testing.T) {
	f := query.Filter{FieldID: "v", Operator: query.OpBetween, Values: []any{10, 20}}

	tests := []struct {
		v    any
		want bool
	}{
		{9, false},
		{10, true},
		{15, true},
		{20, true},
		{20.0001, false},
		{"15", true},
		{nil, false},
		{"abc", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Evaluate(record.Record{"v": tt.v}, f), "value %v", tt.v)
	}
}

func TestEvaluate_BetweenNeedsTwoValues(t *testing.T) {
	row := record.Record{"v": 10}

	assert.False(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpBetween, Values: []any{10}}))
	assert.False(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpBetween}))
	assert.True(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpBetween, Values: []any{10, 10, 99}}),
		"extra values are ignored")
}

func TestEvaluate_InAndNotInEdgeCases(t *testing.T) {
	row := record.Record{"v": "a"}

	t.Run("empty values", func(t *testing.T) {
		assert.False(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpIn, Values: []any{}}))
		assert.True(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpNotIn, Values: []any{}}))
		assert.True(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpNotIn}))
	})

	t.Run("duplicates are irrelevant", func(t *testing.T) {
		assert.True(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpIn, Values: []any{"a", "a"}}))
		assert.False(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpNotIn, Values: []any{"a", "a", "b"}}))
		assert.True(t, Evaluate(row, query.Filter{FieldID: "v", Operator: query.OpNotIn, Values: []any{"b", "b"}}))
	})

	t.Run("null membership", func(t *testing.T) {
		nullRow := record.Record{"v": nil}
		assert.True(t, Evaluate(nullRow, query.Filter{FieldID: "v", Operator: query.OpIn, Values: []any{nil}}))
		assert.False(t, Evaluate(nullRow, query.Filter{FieldID: "v", Operator: query.OpIn, Values: []any{"null"}}))
		assert.True(t, Evaluate(nullRow, query.Filter{FieldID: "v", Operator: query.OpNotIn, Values: []any{"a"}}))
	})
}

func TestMatches_IsConjunction(t *testing.T) {
	row := record.Record{"type": "X", "amt": 10}

	assert.True(t, Matches(row, nil))
	assert.True(t, Matches(row, []query.Filter{
		{FieldID: "type", Operator: query.OpEquals, Value: "X"},
		{FieldID: "amt", Operator: query.OpGreaterThan, Value: 8},
	}))
	assert.False(t, Matches(row, []query.Filter{
		{FieldID: "type", Operator: query.OpEquals, Value: "X"},
		{FieldID: "amt", Operator: query.OpGreaterThan, Value: 10},
	}))
}

func TestApplyFilters_SubsetAndIdempotent(t *testing.T) {
	filterSets := [][]query.Filter{
		nil,
		{{FieldID: "amount", Operator: query.OpGreaterThan, Value: 40}},
		{{FieldID: "region", Operator: query.OpIsNotNull}, {FieldID: "product", Operator: query.OpContains, Value: "an"}},
		{{FieldID: "units", Operator: query.OpBetween, Values: []any{2, 4}}},
		{{FieldID: "region", Operator: query.OpNotIn, Values: []any{"north", "south"}}},
		{{FieldID: "amount", Operator: query.OpIsNull}},
	}

	rows := testutil.SalesRows()
	for i, filters := range filterSets {
		once := ApplyFilters(rows, filters)
		twice := ApplyFilters(once, filters)

		assert.Equal(t, once, twice, "filter set %d is not idempotent", i)
		for _, r := range once {
			assert.Contains(t, rows, r, "filter set %d produced a row not in the input", i)
		}
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	rows := testutil.ScenarioRows()
	out := ApplyFilters(rows, []query.Filter{{FieldID: "amt", Operator: query.OpGreaterThan, Value: 8}})

	require.Len(t, out, 2)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Y", rows[2]["type"])
}
