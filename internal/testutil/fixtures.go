package testutil

import "github.com/roach88/reportcore/internal/record"

// ScenarioRows returns the three-row type/amount data set used across
// engine tests: two "X" rows (10, 20) and one "Y" row (5).
func ScenarioRows() []record.Record {
	return []record.Record{
		{"type": "X", "amt": 10},
		{"type": "X", "amt": 20},
		{"type": "Y", "amt": 5},
	}
}

// SalesRows returns a small sales table with mixed kinds and nulls.
//
// Columns: id (int), region (string, one nil), product (string),
// amount (float64, one nil), units (int), day (date string).
func SalesRows() []record.Record {
	return []record.Record{
		{"id": 1, "region": "north", "product": "apple", "amount": 120.5, "units": 3, "day": "2024-03-01"},
		{"id": 2, "region": "south", "product": "banana", "amount": 80.0, "units": 8, "day": "2024-03-01"},
		{"id": 3, "region": "north", "product": "cherry", "amount": nil, "units": 1, "day": "2024-03-02"},
		{"id": 4, "region": "east", "product": "apple", "amount": 42.25, "units": 2, "day": "2024-03-03"},
		{"id": 5, "region": nil, "product": "banana", "amount": 15.0, "units": 5, "day": "2024-03-03"},
		{"id": 6, "region": "south", "product": "Apple", "amount": 99.0, "units": 4, "day": "2024-03-04"},
		{"id": 7, "region": "north", "product": "banana", "amount": 7.75, "units": 1, "day": "2024-03-05"},
	}
}
