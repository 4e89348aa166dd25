package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"sales_overview", "sales_parallel", "cycle_detected"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestNewSnapshot(t *testing.T) {
	result := NewResult()
	result.PassID = "p"
	result.Order = []string{"a"}
	result.Results["a"] = query.QueryResult{TotalRows: 0, ExecutionTimeMs: 12, Error: "boom"}

	t.Run("sequential keeps order", func(t *testing.T) {
		s := NewSnapshot("s", 1, result)
		assert.Equal(t, []string{"a"}, s.Order)
		assert.Equal(t, []record.Record{}, s.Sections["a"].Rows)
		assert.Equal(t, "boom", s.Sections["a"].Error)
	})

	t.Run("parallel drops order", func(t *testing.T) {
		s := NewSnapshot("s", 3, result)
		assert.Nil(t, s.Order)
	})

	t.Run("marshal", func(t *testing.T) {
		data, err := NewSnapshot("s", 0, result).Marshal()
		require.NoError(t, err)

		want := `{
  "scenario": "s",
  "pass_id": "p",
  "order": [
    "a"
  ],
  "sections": {
    "a": {
      "rows": [],
      "total_rows": 0,
      "error": "boom"
    }
  }
}
`
		assert.Equal(t, want, string(data))
	})
}
