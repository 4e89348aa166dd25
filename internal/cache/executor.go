package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Stats counts cache outcomes of a CachingExecutor.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// CachingExecutor is an engine.Executor that serves repeated queries from
// a Cache.
//
// Concurrent executions of the same fingerprint are collapsed into one.
// Cache backend failures are logged and counted, never surfaced: the query
// simply runs uncached.
type CachingExecutor struct {
	next   engine.Executor
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	scope  string
	group  singleflight.Group

	hits, misses, failures atomic.Int64
}

var _ engine.Executor = (*CachingExecutor)(nil)

// ExecutorOption configures a CachingExecutor.
type ExecutorOption func(*CachingExecutor)

// WithKeyScope prefixes every cache key with scope. Executors backed by
// different data must use different scopes when they share a Cache.
func WithKeyScope(scope string) ExecutorOption {
	return func(e *CachingExecutor) {
		e.scope = scope
	}
}

// NewCachingExecutor wraps next. ttl <= 0 caches without expiry.
func NewCachingExecutor(next engine.Executor, c Cache, ttl time.Duration, logger *slog.Logger, opts ...ExecutorOption) *CachingExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &CachingExecutor{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *CachingExecutor) key(q query.DataQuery) (string, error) {
	fp, err := query.Fingerprint(q)
	if err != nil {
		return "", err
	}
	if e.scope == "" {
		return fp, nil
	}
	return e.scope + ":" + fp, nil
}

// Execute returns the cached result for q or executes and caches it.
func (e *CachingExecutor) Execute(ctx context.Context, q query.DataQuery) query.QueryResult {
	key, err := e.key(q)
	if err != nil {
		e.failures.Add(1)
		e.logger.Warn("query not cacheable", "source", q.DataSourceID, "error", err)
		return e.next.Execute(ctx, q)
	}

	if cached, ok, err := e.cache.Get(ctx, key); err != nil {
		e.failures.Add(1)
		e.logger.Warn("cache get failed", "key", key, "error", err)
	} else if ok {
		e.hits.Add(1)
		e.logger.Debug("cache hit", "key", key, "source", q.DataSourceID)
		return cached
	}

	if ctx.Err() != nil {
		return e.next.Execute(ctx, q)
	}

	// The shared execution outlives any single caller; each caller stops
	// waiting on its own ctx.
	ch := e.group.DoChan(key, func() (any, error) {
		e.misses.Add(1)
		sctx := context.WithoutCancel(ctx)
		result := e.next.Execute(sctx, q)
		if !result.Failed() {
			if err := e.cache.Set(sctx, key, result, e.ttl); err != nil {
				e.failures.Add(1)
				e.logger.Warn("cache set failed", "key", key, "error", err)
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return query.QueryResult{
			Rows:  []record.Record{},
			Error: engine.NewCancelledError("", ctx.Err()).Error(),
		}
	case res := <-ch:
		result := res.Val.(query.QueryResult)
		if res.Shared {
			return cloneResult(result)
		}
		return result
	}
}

// Stats returns a snapshot of the counters.
func (e *CachingExecutor) Stats() Stats {
	return Stats{
		Hits:   e.hits.Load(),
		Misses: e.misses.Load(),
		Errors: e.failures.Load(),
	}
}
