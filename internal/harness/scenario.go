package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one report resolution and
// the assertions it must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Report is the path of the report definition. Relative paths are
	// resolved against the scenario file location.
	Report string `yaml:"report"`

	// Parallelism runs the resolver in parallel mode when greater than one.
	Parallelism int `yaml:"parallelism,omitempty"`

	// PassID is the fixed pass id of the run. Defaults to "test-pass".
	PassID string `yaml:"pass_id,omitempty"`

	// Assertions validate the resolution.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a resolution.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Section is the section under test (result_* and not_executed).
	Section string `yaml:"section,omitempty"`

	// Sections is the expected relative execution order (order).
	Sections []string `yaml:"sections,omitempty"`

	// Rows are the exact expected rows, in order (result_rows).
	Rows []map[string]any `yaml:"rows,omitempty"`

	// Where is a subset one row must match (result_contains).
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected pre-pagination total (total_rows).
	Count *int `yaml:"count,omitempty"`

	// Contains is a substring of the expected error (result_error).
	Contains string `yaml:"contains,omitempty"`

	// Path is the expected cycle path, if given (cycle).
	Path []string `yaml:"path,omitempty"`
}

// Assertion type constants.
const (
	AssertOrder          = "order"
	AssertResultRows     = "result_rows"
	AssertResultContains = "result_contains"
	AssertTotalRows      = "total_rows"
	AssertResultError    = "result_error"
	AssertNotExecuted    = "not_executed"
	AssertCycle          = "cycle"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Report != "" && !filepath.IsAbs(scenario.Report) {
		scenario.Report = filepath.Join(filepath.Dir(path), scenario.Report)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Report == "" {
		return fmt.Errorf("report is required")
	}
	if _, err := os.Stat(s.Report); os.IsNotExist(err) {
		return fmt.Errorf("report file not found: %s", s.Report)
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needSection := func() error {
		if a.Section == "" {
			return fmt.Errorf("assertions[%d]: section is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertOrder:
		if len(a.Sections) < 2 {
			return fmt.Errorf("assertions[%d]: at least two sections are required for order", index)
		}
	case AssertResultRows:
		if err := needSection(); err != nil {
			return err
		}
		if a.Rows == nil {
			return fmt.Errorf("assertions[%d]: rows is required for result_rows (use [] for none)", index)
		}
	case AssertResultContains:
		if err := needSection(); err != nil {
			return err
		}
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for result_contains", index)
		}
	case AssertTotalRows:
		if err := needSection(); err != nil {
			return err
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for total_rows", index)
		}
	case AssertResultError, AssertNotExecuted:
		if err := needSection(); err != nil {
			return err
		}
	case AssertCycle:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
