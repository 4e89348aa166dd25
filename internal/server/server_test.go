package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/logging"
	"github.com/roach88/reportcore/internal/metrics"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
	"github.com/roach88/reportcore/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(opts ...Option) *Server {
	src := datasource.NewMemorySource(map[string][]record.Record{
		"scenario": testutil.ScenarioRows(),
		"sales":    testutil.SalesRows(),
	})
	base := []Option{
		WithLogger(logging.Discard()),
		WithPassIDGenerator(testutil.NewConstantGenerator("")),
		WithOrchestratorOptions(engine.WithClock(testutil.NewStepClock(time.Millisecond))),
	}
	return New(src, append(base, opts...)...)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var scenarioQuery = query.DataQuery{
	DataSourceID: "scenario",
	Dimensions:   []query.Field{{ID: "type"}},
	Measures:     []query.Field{{ID: "amt", Aggregation: query.AggSum}},
	Sorts:        []query.SortKey{{FieldID: "type"}},
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestValidateQuery(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, http.MethodPost, "/v1/queries/validate", query.DataQuery{DataSourceID: "sales"})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[query.ValidationResult](t, rec)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{query.MsgNoSelection}, v.Errors)

	rec = do(t, s, http.MethodPost, "/v1/queries/validate", scenarioQuery)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[query.ValidationResult](t, rec).Valid)
}

func TestExecuteQuery(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodPost, "/v1/queries/execute", executeRequest{Query: scenarioQuery})
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[query.QueryResult](t, rec)
	assert.Empty(t, res.Error)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, []record.Record{
		{"type": "X", "amt": 30.0},
		{"type": "Y", "amt": 5.0},
	}, res.Rows)
	assert.Equal(t, 1.0, res.ExecutionTimeMs)
}

func TestExecuteQuery_InlineRowsOverride(t *testing.T) {
	req := executeRequest{
		Query: scenarioQuery,
		Rows: inlineRows{"scenario": {
			{"type": "Z", "amt": 1},
			{"type": "Z", "amt": 2},
		}},
	}
	rec := do(t, newTestServer(), http.MethodPost, "/v1/queries/execute", req)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[query.QueryResult](t, rec)
	assert.Equal(t, []record.Record{{"type": "Z", "amt": 3.0}}, res.Rows)
}

func TestExecuteQuery_Invalid(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodPost, "/v1/queries/execute", executeRequest{Query: query.DataQuery{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Contains(t, resp.Error, "invalid query:")
	require.NotNil(t, resp.Validation)
	assert.Contains(t, resp.Validation.Errors, query.MsgMissingSource)
}

func TestExecuteQuery_UnknownSourceIsData(t *testing.T) {
	q := scenarioQuery
	q.DataSourceID = "nope"

	rec := do(t, newTestServer(), http.MethodPost, "/v1/queries/execute", executeRequest{Query: q})
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[query.QueryResult](t, rec)
	assert.Contains(t, res.Error, "unknown data source")
	assert.Empty(t, res.Rows)
	assert.Equal(t, 0, res.TotalRows)
}

func TestBadBody(t *testing.T) {
	s := newTestServer()
	for _, path := range []string{"/v1/queries/validate", "/v1/queries/execute", "/v1/reports/resolve"} {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid request body", path)
	}
}

func TestResolveReport(t *testing.T) {
	q := scenarioQuery
	req := resolveRequest{Sections: []query.Section{
		{ID: "A", Dependencies: []string{"B"}, DataQuery: &q},
		{ID: "B", Dependencies: []string{"C"}},
		{ID: "C", DataQuery: &q},
	}}

	for _, par := range []int{1, 3} {
		rec := do(t, newTestServer(WithParallelism(par)), http.MethodPost, "/v1/reports/resolve", req)
		require.Equal(t, http.StatusOK, rec.Code)

		res := decode[engine.Resolution](t, rec)
		assert.Equal(t, "test-pass", res.PassID)
		assert.Equal(t, []string{"C", "B", "A"}, res.Order)
		assert.Len(t, res.Results, 2)
		assert.Equal(t, 2, res.Results["A"].TotalRows)
	}
}

func TestResolveReport_Cycle(t *testing.T) {
	req := resolveRequest{Sections: []query.Section{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}}

	rec := do(t, newTestServer(), http.MethodPost, "/v1/reports/resolve", req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[errorResponse](t, rec)
	assert.Equal(t, "CYCLE_DETECTED", resp.Code)
	assert.Equal(t, []string{"a", "b", "a"}, resp.Path)
}

func TestResolveReport_InlineRows(t *testing.T) {
	req := resolveRequest{
		Sections: []query.Section{{
			ID: "teams",
			DataQuery: &query.DataQuery{
				DataSourceID: "adhoc",
				Dimensions:   []query.Field{{ID: "team"}},
				Sorts:        []query.SortKey{{FieldID: "team", Direction: query.Desc}},
			},
		}},
		Rows: inlineRows{"adhoc": {{"team": "a"}, {"team": "b"}}},
	}

	rec := do(t, newTestServer(), http.MethodPost, "/v1/reports/resolve", req)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[engine.Resolution](t, rec)
	assert.Equal(t, []record.Record{{"team": "b"}, {"team": "a"}}, res.Results["teams"].Rows)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(WithRateLimit(rate.Every(time.Hour), 1))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(WithCollector(metrics.NewCollector()))

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/queries/execute", executeRequest{Query: scenarioQuery}).Code)

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `reportcore_http_requests_total{method="POST",path="/v1/queries/execute",status="200"} 1`)
	assert.Contains(t, body, `reportcore_queries_total{mode="aggregation",source="scenario",status="ok"} 1`)
}

func TestMetricsDisabledWithoutCollector(t *testing.T) {
	rec := do(t, newTestServer(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
