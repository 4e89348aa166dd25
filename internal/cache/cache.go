package cache

import (
	"context"
	"time"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Cache stores query results by key.
//
// Get reports a miss as (zero, false, nil); an error means the backend
// could not answer. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (query.QueryResult, bool, error)
	Set(ctx context.Context, key string, result query.QueryResult, ttl time.Duration) error
}

// cloneResult copies the row maps so callers cannot mutate a cached value.
func cloneResult(r query.QueryResult) query.QueryResult {
	r.Rows = record.CloneAll(r.Rows)
	return r
}
