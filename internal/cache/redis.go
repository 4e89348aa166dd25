package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// DefaultRedisPrefix namespaces keys written by RedisCache.
const DefaultRedisPrefix = "reportcore:result:"

// RedisCache stores results as JSON strings in Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache wraps client. An empty prefix uses DefaultRedisPrefix.
func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// NewRedisClient creates a client for addr and db.
func NewRedisClient(addr string, db int) *redis.Client {
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get loads and decodes the result stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (query.QueryResult, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return query.QueryResult{}, false, nil
	}
	if err != nil {
		return query.QueryResult{}, false, fmt.Errorf("redis get: %w", err)
	}

	result, err := decodeResult(data)
	if err != nil {
		return query.QueryResult{}, false, fmt.Errorf("invalid cached result for %s: %w", key, err)
	}
	return result, true, nil
}

// Set encodes result and stores it under key. ttl <= 0 never expires.
func (c *RedisCache) Set(ctx context.Context, key string, result query.QueryResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// decodeResult parses a stored result, keeping integer precision in rows.
func decodeResult(data []byte) (query.QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var result query.QueryResult
	if err := dec.Decode(&result); err != nil {
		return query.QueryResult{}, err
	}
	for i, r := range result.Rows {
		for k, v := range r {
			r[k] = record.FromJSON(v)
		}
		result.Rows[i] = r
	}
	if result.Rows == nil {
		result.Rows = []record.Record{}
	}
	return result, nil
}
