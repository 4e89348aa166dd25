package cache

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/reportcore/internal/query"
)

const defaultSweepEvery = time.Minute

type memoryEntry struct {
	result    query.QueryResult
	createdAt time.Time
	expiresAt time.Time // zero: never
}

// MemoryCache is an in-process TTL cache.
//
// Expired entries are dropped lazily on Get and by a periodic sweep that
// piggybacks on Get/Set calls. When maxEntries is set, Set evicts the
// oldest entry to make room.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*memoryEntry
	now        func() time.Time
	maxEntries int
	sweepEvery time.Duration
	lastSweep  time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMaxEntries bounds the number of cached results. 0 means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(c *MemoryCache) {
		c.maxEntries = n
	}
}

// WithNow sets the time source. Used by tests.
func WithNow(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]*memoryEntry),
		now:        time.Now,
		sweepEvery: defaultSweepEvery,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastSweep = c.now()
	return c
}

// Get returns a copy of the cached result for key.
func (c *MemoryCache) Get(_ context.Context, key string) (query.QueryResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweepLocked(now)

	entry, ok := c.items[key]
	if !ok {
		return query.QueryResult{}, false, nil
	}
	if entry.expired(now) {
		delete(c.items, key)
		return query.QueryResult{}, false, nil
	}
	return cloneResult(entry.result), true, nil
}

// Set stores a copy of result under key. ttl <= 0 never expires.
func (c *MemoryCache) Set(_ context.Context, key string, result query.QueryResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.maybeSweepLocked(now)

	entry := &memoryEntry{result: cloneResult(result), createdAt: now}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}

	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.items[key] = entry
	return nil
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (c *MemoryCache) maybeSweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.sweepEvery {
		return
	}
	for key, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}

func (c *MemoryCache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.items {
		if oldestKey == "" || entry.createdAt.Before(oldest) {
			oldestKey, oldest = key, entry.createdAt
		}
	}
	delete(c.items, oldestKey)
}
