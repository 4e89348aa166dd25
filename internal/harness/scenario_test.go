package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content next to a placeholder report and returns the
// scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.yaml"), []byte("name: r\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
report: report.yaml
parallelism: 2
pass_id: fixed
assertions:
  - type: result_rows
    section: totals
    rows:
      - {region: north, amount: 3}
  - type: total_rows
    section: totals
    count: 0
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "report.yaml"), scenario.Report)
	assert.Equal(t, 2, scenario.Parallelism)
	assert.Equal(t, "fixed", scenario.PassID)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, "north", scenario.Assertions[0].Rows[0]["region"])
	assert.Equal(t, 3, scenario.Assertions[0].Rows[0]["amount"])
	require.NotNil(t, scenario.Assertions[1].Count)
	assert.Equal(t, 0, *scenario.Assertions[1].Count)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: misspelled key
report: report.yaml
assertion:
  - type: cycle
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nreport: report.yaml\nassertions: [{type: cycle}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nreport: report.yaml\nassertions: [{type: cycle}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing report",
			content: "name: n\ndescription: d\nassertions: [{type: cycle}]\n",
			wantErr: "report is required",
		},
		{
			name:    "report not found",
			content: "name: n\ndescription: d\nreport: other.yaml\nassertions: [{type: cycle}]\n",
			wantErr: "report file not found",
		},
		{
			name:    "negative parallelism",
			content: "name: n\ndescription: d\nreport: report.yaml\nparallelism: -1\nassertions: [{type: cycle}]\n",
			wantErr: "parallelism must be non-negative",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nreport: report.yaml\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "missing type",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{section: a}]\n",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown type",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "order needs two sections",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: order, sections: [a]}]\n",
			wantErr: "at least two sections",
		},
		{
			name:    "rows need section",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: result_rows, rows: []}]\n",
			wantErr: "section is required for result_rows",
		},
		{
			name:    "rows required",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: result_rows, section: a}]\n",
			wantErr: "rows is required",
		},
		{
			name:    "where required",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: result_contains, section: a}]\n",
			wantErr: "where is required",
		},
		{
			name:    "count required",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: total_rows, section: a}]\n",
			wantErr: "non-negative count is required",
		},
		{
			name:    "second assertion indexed",
			content: "name: n\ndescription: d\nreport: report.yaml\nassertions: [{type: cycle}, {type: not_executed}]\n",
			wantErr: "assertions[1]: section is required for not_executed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}
