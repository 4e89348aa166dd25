package datasource

import (
	"context"
	"sync"

	"github.com/roach88/reportcore/internal/record"
)

// MemorySource serves rows held in process.
//
// Fetch returns shallow copies of the stored records, so callers may add
// or drop keys without affecting later fetches.
type MemorySource struct {
	mu   sync.RWMutex
	sets map[string][]record.Record
}

// NewMemorySource creates a source from a map of id to rows.
// The map is copied; the records are normalised.
func NewMemorySource(sets map[string][]record.Record) *MemorySource {
	s := &MemorySource{sets: make(map[string][]record.Record, len(sets))}
	for id, rows := range sets {
		s.Put(id, rows)
	}
	return s
}

// Put stores rows under id, replacing any previous rows.
func (s *MemorySource) Put(id string, rows []record.Record) {
	stored := make([]record.Record, len(rows))
	for i, r := range rows {
		stored[i] = record.FromMap(r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[id] = stored
}

// Fetch returns the rows stored under dataSourceID.
func (s *MemorySource) Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rows, ok := s.sets[dataSourceID]
	s.mu.RUnlock()

	if !ok {
		return nil, unknown(dataSourceID)
	}
	return record.CloneAll(rows), nil
}
