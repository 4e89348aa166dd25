package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/query"
)

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestCheck_ValidReport(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "sales.yaml"))
	require.NoError(t, err)

	res := Check(def)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []string{"by-region", "summary", "apples"}, res.Order)
}

func TestCheck_Cycle(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "cycle.yaml"))
	require.NoError(t, err)

	res := Check(def)
	assert.False(t, res.Valid)
	require.Equal(t, []string{ErrDependencyCycle}, codes(res.Errors))
	assert.Equal(t, "b", res.Errors[0].Section)
	assert.Contains(t, res.Errors[0].Message, "circular dependency: b → c → b")
	assert.Nil(t, res.Order)
}

func TestCheck_CollectsEveryProblem(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "problems.yaml"))
	require.NoError(t, err)

	res := Check(def)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{
		ErrDuplicateDataSource,
		ErrInvalidDataSource,
		ErrInvalidDataSource,
		ErrDuplicateSection,
		ErrInvalidQuery,
		ErrUnknownDataSource,
	}, codes(res.Errors))
	assert.Equal(t, []string{WarnUnknownDependency, WarnQuery}, codes(res.Warnings))

	assert.Equal(t, "orders", res.Errors[0].Source)
	assert.Equal(t, "remote", res.Errors[1].Source)
	assert.Contains(t, res.Errors[2].Message, `unknown kind "ftp"`)
	assert.Equal(t, "empty", res.Errors[4].Section)
	assert.Equal(t, query.MsgNoSelection, res.Errors[4].Message)
	assert.Equal(t, query.MsgLargeLimit, res.Warnings[1].Message)

	// Duplicates do not hide the plan.
	assert.Equal(t, []string{"empty", "stray"}, res.Order)
}

func TestCheck_UndeclaredSourcesAllowedWithoutDeclarations(t *testing.T) {
	def := &Definition{
		Name: "external",
		Sections: []query.Section{{
			ID: "s",
			DataQuery: &query.DataQuery{
				DataSourceID: "anything",
				Dimensions:   []query.Field{{ID: "region"}},
			},
		}},
	}

	res := Check(def)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestCheck_EmptyReportWarns(t *testing.T) {
	res := Check(&Definition{Name: "empty"})

	assert.True(t, res.Valid)
	assert.Equal(t, []string{WarnNoSections}, codes(res.Warnings))
}

func TestIssue_Error(t *testing.T) {
	assert.Equal(t, "[E204] section s: bad", Issue{Code: "E204", Section: "s", Message: "bad"}.Error())
	assert.Equal(t, "[E207] data source d: bad", Issue{Code: "E207", Source: "d", Message: "bad"}.Error())
	assert.Equal(t, "[W303] bad", Issue{Code: "W303", Message: "bad"}.Error())
}
