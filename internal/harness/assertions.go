package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes the execution order to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Execution order for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nExecution order:\n")
	for i, id := range e.Order {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, id)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns
// the messages of those that failed, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOrder:
		return assertOrder(result, a)
	case AssertResultRows:
		return assertResultRows(result, a)
	case AssertResultContains:
		return assertResultContains(result, a)
	case AssertTotalRows:
		return assertTotalRows(result, a)
	case AssertResultError:
		return assertResultError(result, a)
	case AssertNotExecuted:
		return assertNotExecuted(result, a)
	case AssertCycle:
		return assertCycle(result, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertOrder checks sections completed in the listed relative order.
// Other sections may complete in between.
func assertOrder(result *Result, a Assertion) error {
	positions := make(map[string]int, len(result.Order))
	for i, id := range result.Order {
		positions[id] = i + 1 // 1-indexed for readability
	}

	for _, id := range a.Sections {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("all sections executed: %v", a.Sections),
				Actual:   fmt.Sprintf("missing section: %s", id),
				Order:    result.Order,
			}
		}
	}

	for i := 1; i < len(a.Sections); i++ {
		prev, curr := a.Sections[i-1], a.Sections[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertOrder,
				Expected: fmt.Sprintf("sections in order: %v", a.Sections),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Order: result.Order,
			}
		}
	}
	return nil
}

// sectionResult finds the result of a section or builds the error for its
// absence.
func sectionResult(result *Result, a Assertion) (rows []record.Record, total int, errMsg string, err error) {
	r, ok := result.Results[a.Section]
	if !ok {
		return nil, 0, "", &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("section %s executed", a.Section),
			Actual:   "no result",
			Order:    result.Order,
		}
	}
	return r.Rows, r.TotalRows, r.Error, nil
}

func assertResultRows(result *Result, a Assertion) error {
	rows, _, errMsg, err := sectionResult(result, a)
	if err != nil {
		return err
	}
	if errMsg != "" {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d row(s) in %s", len(a.Rows), a.Section),
			Actual:   "error: " + errMsg,
			Order:    result.Order,
		}
	}

	match := len(rows) == len(a.Rows)
	for i := 0; match && i < len(rows); i++ {
		match = len(rows[i]) == len(a.Rows[i]) && matchFields(rows[i], a.Rows[i])
	}
	if !match {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s rows %v", a.Section, a.Rows),
			Actual:   fmt.Sprintf("%v", rows),
			Order:    result.Order,
		}
	}
	return nil
}

func assertResultContains(result *Result, a Assertion) error {
	rows, _, _, err := sectionResult(result, a)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if matchFields(r, a.Where) {
			return nil
		}
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s has a row matching %v", a.Section, a.Where),
		Actual:   fmt.Sprintf("%d row(s), none matching", len(rows)),
		Order:    result.Order,
	}
}

func assertTotalRows(result *Result, a Assertion) error {
	_, total, _, err := sectionResult(result, a)
	if err != nil {
		return err
	}
	if total != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s total %d", a.Section, *a.Count),
			Actual:   fmt.Sprintf("total %d", total),
			Order:    result.Order,
		}
	}
	return nil
}

func assertResultError(result *Result, a Assertion) error {
	_, _, errMsg, err := sectionResult(result, a)
	if err != nil {
		return err
	}
	if errMsg == "" || !strings.Contains(errMsg, a.Contains) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s failed with %q", a.Section, a.Contains),
			Actual:   fmt.Sprintf("error %q", errMsg),
			Order:    result.Order,
		}
	}
	return nil
}

func assertNotExecuted(result *Result, a Assertion) error {
	if _, ok := result.Results[a.Section]; ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("section %s not executed", a.Section),
			Actual:   "has a result",
			Order:    result.Order,
		}
	}
	return nil
}

func assertCycle(result *Result, a Assertion) error {
	if result.ErrorCode != string(engine.ErrCodeCycleDetected) {
		return &AssertionError{
			Type:     a.Type,
			Expected: "dependency cycle",
			Actual:   fmt.Sprintf("error code %q", result.ErrorCode),
			Order:    result.Order,
		}
	}
	if len(a.Path) > 0 && !slices.Equal(a.Path, result.ErrorPath) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("cycle %v", a.Path),
			Actual:   fmt.Sprintf("cycle %v", result.ErrorPath),
			Order:    result.Order,
		}
	}
	return nil
}

// matchFields reports whether every expected field equals the row's value.
// Values compare as the engine compares them: numbers numerically.
func matchFields(row record.Record, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := row[k]
		if !ok && want != nil {
			return false
		}
		if !record.Equal(got, want) {
			return false
		}
	}
	return true
}
