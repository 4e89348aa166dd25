package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// fakeNow is a settable time source.
type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }

func sampleResult() query.QueryResult {
	return query.QueryResult{
		Rows:            []record.Record{{"type": "X", "amt": 30.0}},
		TotalRows:       1,
		ExecutionTimeMs: 1.5,
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", sampleResult(), time.Minute))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	original := sampleResult()
	require.NoError(t, c.Set(ctx, "k", original, 0))
	original.Rows[0]["type"] = "mutated after set"

	got, _, _ := c.Get(ctx, "k")
	got.Rows[0]["type"] = "mutated after get"

	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "X", again.Rows[0]["type"])
}

func TestMemoryCache_TTL(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithNow(clock.now))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", sampleResult(), 10*time.Second))
	require.NoError(t, c.Set(ctx, "forever", sampleResult(), 0))

	clock.t = clock.t.Add(9 * time.Second)
	_, ok, _ := c.Get(ctx, "short")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok, _ = c.Get(ctx, "short")
	assert.False(t, ok, "expires exactly at ttl")

	clock.t = clock.t.Add(24 * time.Hour)
	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCache_SweepDropsExpired(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithNow(clock.now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), sampleResult(), time.Second))
	}
	require.Equal(t, 5, c.Len())

	clock.t = clock.t.Add(2 * defaultSweepEvery)
	_, _, _ = c.Get(ctx, "other")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_MaxEntriesEvictsOldest(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithNow(clock.now), WithMaxEntries(2))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, sampleResult(), 0))
		clock.t = clock.t.Add(time.Millisecond)
	}

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "c")
	assert.True(t, ok)

	require.NoError(t, c.Set(ctx, "c", sampleResult(), 0))
	assert.Equal(t, 2, c.Len(), "overwriting does not evict")
}
