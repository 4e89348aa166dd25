package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/roach88/reportcore/internal/record"
)

func newRowsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/sales", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"region":"north","amount":120.5,"units":3},{"region":null,"amount":9007199254740993,"units":1}]`))
	})
	mux.HandleFunc("/data/wrapped", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rows":[{"id":1}]}`))
	})
	mux.HandleFunc("/data/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	mux.HandleFunc("/data/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"just a string"`))
	})
	mux.HandleFunc("/data/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource_FetchArray(t *testing.T) {
	srv := newRowsServer(t)
	src := NewHTTPSource(srv.URL+"/data/", WithHeader("Authorization", "Bearer token"))

	rows, err := src.Fetch(context.Background(), "sales")
	require.NoError(t, err)

	assert.Equal(t, []record.Record{
		{"region": "north", "amount": 120.5, "units": int64(3)},
		{"region": nil, "amount": int64(9007199254740993), "units": int64(1)},
	}, rows)
}

func TestHTTPSource_TimeoutOption(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	after := NewHTTPSource("http://example.test", WithHTTPClient(shared), WithTimeout(time.Second))
	before := NewHTTPSource("http://example.test", WithTimeout(time.Second), WithHTTPClient(shared))
	plain := NewHTTPSource("http://example.test", WithHTTPClient(shared))

	assert.Equal(t, time.Second, after.client.Timeout)
	assert.Equal(t, time.Second, before.client.Timeout)
	assert.Same(t, shared, plain.client)
	assert.Equal(t, time.Minute, shared.Timeout, "shared client must not be modified")
}

func TestHTTPSource_FetchWrappedRows(t *testing.T) {
	srv := newRowsServer(t)
	src := NewHTTPSource(srv.URL + "/data")

	rows, err := src.Fetch(context.Background(), "wrapped")
	require.NoError(t, err)
	assert.Equal(t, []record.Record{{"id": int64(1)}}, rows)
}

func TestHTTPSource_Errors(t *testing.T) {
	srv := newRowsServer(t)
	src := NewHTTPSource(srv.URL + "/data")

	t.Run("404 is unknown source", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), "nothing-here")
		assert.ErrorIs(t, err, ErrUnknownSource)
	})

	t.Run("non-2xx quotes status and body", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), "broken")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
		assert.Contains(t, err.Error(), "upstream exploded")
	})

	t.Run("bad payload", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), "garbage")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "want array or object")
	})

	t.Run("context cancels request", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := src.Fetch(ctx, "slow")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHTTPSource_EscapesID(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.EscapedPath())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rows, err := NewHTTPSource(srv.URL).Fetch(context.Background(), "a b/c")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, "/a%20b%2Fc", gotPath.Load())
}

func TestHTTPSource_RateLimitHonoursContext(t *testing.T) {
	srv := newRowsServer(t)
	src := NewHTTPSource(srv.URL+"/data", WithRateLimit(rate.Every(time.Hour), 1))

	_, err := src.Fetch(context.Background(), "wrapped")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Fetch(ctx, "wrapped")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
