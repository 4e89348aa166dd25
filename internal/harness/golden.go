package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reportcore/internal/record"
)

// Snapshot captures the observable outcome of a scenario for golden
// comparison. Execution times are left out; they depend on the clock.
type Snapshot struct {
	Scenario string                     `json:"scenario"`
	PassID   string                     `json:"pass_id"`
	Order    []string                   `json:"order,omitempty"`
	Sections map[string]SectionSnapshot `json:"sections"`
	Error    string                     `json:"error,omitempty"`
}

// SectionSnapshot is the recorded result of one section.
type SectionSnapshot struct {
	Rows      []record.Record `json:"rows"`
	TotalRows int             `json:"total_rows"`
	Error     string          `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a result. Completion order is only
// recorded for sequential runs, where it is deterministic.
func NewSnapshot(name string, parallelism int, result *Result) Snapshot {
	s := Snapshot{
		Scenario: name,
		PassID:   result.PassID,
		Sections: make(map[string]SectionSnapshot, len(result.Results)),
		Error:    result.Error,
	}
	if parallelism <= 1 {
		s.Order = result.Order
	}
	for id, r := range result.Results {
		rows := r.Rows
		if rows == nil {
			rows = []record.Record{}
		}
		s.Sections[id] = SectionSnapshot{Rows: rows, TotalRows: r.TotalRows, Error: r.Error}
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Map keys are sorted, so the output is stable.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.Parallelism, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, parallelism int, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, parallelism, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
