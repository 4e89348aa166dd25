package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
	"github.com/roach88/reportcore/internal/testutil"
)

func testRunOptions() RunOptions {
	return RunOptions{
		Clock:   testutil.NewStepClock(time.Millisecond),
		PassIDs: testutil.NewConstantGenerator(""),
	}
}

func TestRun_Sales(t *testing.T) {
	for _, par := range []int{1, 4} {
		def, err := Load(filepath.Join("testdata", "sales.yaml"))
		require.NoError(t, err)

		opts := testRunOptions()
		opts.Parallelism = par
		res, err := Run(context.Background(), def, opts)
		require.NoError(t, err)

		assert.Equal(t, "test-pass", res.PassID)
		assert.ElementsMatch(t, []string{"by-region", "summary", "apples"}, res.Order)
		require.Len(t, res.Results, 2)

		byRegion := res.Results["by-region"]
		assert.Empty(t, byRegion.Error)
		assert.Equal(t, []record.Record{
			{"region": "north", "amount": 160.0},
			{"region": "south", "amount": 80.0},
			{"region": "east", "amount": 15.0},
		}, byRegion.Rows)
		assert.Equal(t, 3, byRegion.TotalRows)
		assert.Equal(t, 1.0, byRegion.ExecutionTimeMs)

		apples := res.Results["apples"]
		assert.Equal(t, []record.Record{
			{"region": "east", "product": "apple"},
			{"region": "north", "product": "apple"},
		}, apples.Rows)
	}
}

func TestRun_Cycle(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "cycle.yaml"))
	require.NoError(t, err)

	res, err := Run(context.Background(), def, testRunOptions())
	require.Error(t, err)
	assert.True(t, engine.IsCycleError(err))
	assert.Nil(t, res)
}

func TestRun_BadSource(t *testing.T) {
	def := &Definition{
		Name:        "bad",
		DataSources: []DataSourceSpec{{ID: "x", Kind: "ftp"}},
	}

	_, err := Run(context.Background(), def, testRunOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `report "bad"`)
	assert.Contains(t, err.Error(), `unknown kind "ftp"`)
}

func TestRun_SQLiteSource(t *testing.T) {
	dir := t.TempDir()

	src, err := datasource.OpenSQLite(filepath.Join(dir, "orders.db"))
	require.NoError(t, err)
	require.NoError(t, src.Import(context.Background(), "orders", []record.Record{
		{"region": "north", "amount": 3},
		{"region": "north", "amount": 4},
		{"region": "south", "amount": 5},
	}))
	require.NoError(t, src.Close())

	// The definition names the database relative to itself.
	raw, err := os.ReadFile(filepath.Join("testdata", "sqlite.yaml"))
	require.NoError(t, err)
	path := filepath.Join(dir, "report.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	def, err := Load(path)
	require.NoError(t, err)

	res, err := Run(context.Background(), def, testRunOptions())
	require.NoError(t, err)

	all := res.Results["all"]
	assert.Empty(t, all.Error)
	assert.Equal(t, []record.Record{
		{"region": "north"},
		{"region": "north"},
		{"region": "south"},
	}, all.Rows)
}

func TestRun_HTTPSourceWithCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"team": "a", "score": 2},
			{"team": "b", "score": 7},
			{"team": "a", "score": 5},
		})
	}))
	defer srv.Close()

	scores := &query.DataQuery{
		DataSourceID: "scores",
		Dimensions:   []query.Field{{ID: "team"}},
		Measures:     []query.Field{{ID: "score", Aggregation: query.AggMax}},
		Sorts:        []query.SortKey{{FieldID: "team"}},
	}
	def := &Definition{
		Name: "remote",
		DataSources: []DataSourceSpec{{
			ID:      "scores",
			Kind:    KindHTTP,
			URL:     srv.URL,
			Headers: map[string]string{"X-Token": "secret"},
		}},
		Sections: []query.Section{
			{ID: "first", DataQuery: scores},
			{ID: "again", DataQuery: scores},
		},
	}

	opts := testRunOptions()
	opts.Cache = cache.NewMemoryCache()
	res, err := Run(context.Background(), def, opts)
	require.NoError(t, err)

	want := []record.Record{
		{"team": "a", "score": 5.0},
		{"team": "b", "score": 7.0},
	}
	assert.Equal(t, want, res.Results["first"].Rows)
	assert.Equal(t, want, res.Results["again"].Rows)
	assert.Equal(t, int32(1), hits.Load(), "second section is served from the cache")
}

func TestRun_SharedCacheKeepsDefinitionsApart(t *testing.T) {
	orders := func(amount int) *Definition {
		return &Definition{
			Name: "orders",
			DataSources: []DataSourceSpec{{
				ID:   "orders",
				Kind: KindInline,
				Rows: []map[string]any{{"amount": amount}},
			}},
			Sections: []query.Section{{
				ID:        "all",
				DataQuery: &query.DataQuery{DataSourceID: "orders", Dimensions: []query.Field{{ID: "amount"}}},
			}},
		}
	}

	shared := cache.NewMemoryCache()
	opts := testRunOptions()
	opts.Cache = shared

	first, err := Run(context.Background(), orders(10), opts)
	require.NoError(t, err)
	second, err := Run(context.Background(), orders(999), opts)
	require.NoError(t, err)

	assert.Equal(t, []record.Record{{"amount": 10}}, first.Results["all"].Rows)
	assert.Equal(t, []record.Record{{"amount": 999}}, second.Results["all"].Rows)
}

func TestDefinition_CacheScope(t *testing.T) {
	def, err := Load(filepath.Join("testdata", "sales.yaml"))
	require.NoError(t, err)

	a, err := def.CacheScope()
	require.NoError(t, err)
	b, err := def.CacheScope()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	renamed := *def
	renamed.Name = "other"
	c, err := renamed.CacheScope()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	sectionsOnly := *def
	sectionsOnly.Sections = nil
	d, err := sectionsOnly.CacheScope()
	require.NoError(t, err)
	assert.Equal(t, a, d, "sections do not affect the data behind a scope")
}
