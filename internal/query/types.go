package query

import (
	"github.com/roach88/reportcore/internal/record"
)

// DataType is the declared type of a field.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// Aggregation names the reduction applied to a measure.
type Aggregation string

const (
	AggSum      Aggregation = "sum"
	AggAvg      Aggregation = "avg"
	AggCount    Aggregation = "count"
	AggMin      Aggregation = "min"
	AggMax      Aggregation = "max"
	AggDistinct Aggregation = "distinct"
)

// Known reports whether a is one of the supported reductions.
func (a Aggregation) Known() bool {
	switch a {
	case AggSum, AggAvg, AggCount, AggMin, AggMax, AggDistinct:
		return true
	}
	return false
}

// Field identifies a column projection or a measure to reduce.
// Records are read by ID.
type Field struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	DisplayName string      `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	DataType    DataType    `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Aggregation Aggregation `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
}

// Operator is a filter comparison.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "notEquals"
	OpContains           Operator = "contains"
	OpNotContains        Operator = "notContains"
	OpStartsWith         Operator = "startsWith"
	OpEndsWith           Operator = "endsWith"
	OpGreaterThan        Operator = "greaterThan"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpBetween            Operator = "between"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "notIn"
	OpIsNull             Operator = "isNull"
	OpIsNotNull          Operator = "isNotNull"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OpEquals, OpNotEquals, OpContains, OpNotContains, OpStartsWith, OpEndsWith,
	OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual,
	OpBetween, OpIn, OpNotIn, OpIsNull, OpIsNotNull,
}

// Known reports whether op is a supported operator.
func (op Operator) Known() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// TakesValues reports whether op reads Filter.Values instead of Filter.Value.
func (op Operator) TakesValues() bool {
	return op == OpBetween || op == OpIn || op == OpNotIn
}

// Unary reports whether op ignores both Value and Values.
func (op Operator) Unary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// Filter restricts rows. between, in and notIn use Values; every other
// operator uses Value.
type Filter struct {
	FieldID  string   `json:"fieldId" yaml:"fieldId"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Values   []any    `json:"values,omitempty" yaml:"values,omitempty"`
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortKey orders rows by one field. Earlier keys in a sequence take precedence.
type SortKey struct {
	FieldID   string    `json:"fieldId" yaml:"fieldId"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Descending reports whether the key sorts in descending order.
// An empty direction means ascending.
func (k SortKey) Descending() bool {
	return k.Direction == Desc
}

// DataQuery is the declarative query bound to a section.
//
// Limit is a pointer so "no pagination" and "a page of size 0" stay
// distinguishable. Offset only applies when Limit is set.
type DataQuery struct {
	DataSourceID string    `json:"dataSourceId" yaml:"dataSourceId"`
	Dimensions   []Field   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Measures     []Field   `json:"measures,omitempty" yaml:"measures,omitempty"`
	Filters      []Filter  `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sorts        []SortKey `json:"sorts,omitempty" yaml:"sorts,omitempty"`
	Limit        *int      `json:"limit,omitempty" yaml:"limit,omitempty"`
	Offset       *int      `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// DimensionIDs returns the ids of the query's dimensions in order.
func (q DataQuery) DimensionIDs() []string {
	ids := make([]string, len(q.Dimensions))
	for i, d := range q.Dimensions {
		ids[i] = d.ID
	}
	return ids
}

// QueryResult is the outcome of executing one DataQuery.
//
// TotalRows is the row count before pagination. A failed execution has
// empty Rows, TotalRows 0 and a non-empty Error.
type QueryResult struct {
	Rows            []record.Record `json:"rows"`
	TotalRows       int             `json:"totalRows"`
	ExecutionTimeMs float64         `json:"executionTimeMs"`
	Error           string          `json:"error,omitempty"`
}

// Failed reports whether the execution captured an error.
func (r QueryResult) Failed() bool {
	return r.Error != ""
}

// Section is one renderable unit of a report. A section without a
// DataQuery is a pass-through that still orders its dependents.
type Section struct {
	ID           string     `json:"id" yaml:"id"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	DataQuery    *DataQuery `json:"dataQuery,omitempty" yaml:"dataQuery,omitempty"`
}

// Int returns a pointer to n, for building Limit and Offset literals.
func Int(n int) *int {
	return &n
}
