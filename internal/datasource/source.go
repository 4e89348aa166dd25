package datasource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/reportcore/internal/record"
)

// ErrUnknownSource is returned (wrapped) when a Source does not serve an id.
var ErrUnknownSource = errors.New("unknown data source")

// Source fetches the ordered rows of a data source.
//
// Implementations must be safe for concurrent use: the resolver may fetch
// independent sections in parallel.
type Source interface {
	Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error)
}

// unknown builds the canonical unknown-id error.
func unknown(dataSourceID string) error {
	return fmt.Errorf("%w: %q", ErrUnknownSource, dataSourceID)
}

// Mux routes data source ids to the Source registered for them.
//
// Thread-safety: Register and Fetch may be called concurrently.
type Mux struct {
	mu     sync.RWMutex
	routes map[string]Source
}

// NewMux creates an empty router.
func NewMux() *Mux {
	return &Mux{routes: make(map[string]Source)}
}

// Register routes dataSourceID to src, replacing any previous route.
func (m *Mux) Register(dataSourceID string, src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[dataSourceID] = src
}

// IDs returns the registered ids in sorted order.
func (m *Mux) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.routes))
	for id := range m.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Fetch delegates to the Source registered for dataSourceID.
func (m *Mux) Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error) {
	m.mu.RLock()
	src, ok := m.routes[dataSourceID]
	m.mu.RUnlock()

	if !ok {
		return nil, unknown(dataSourceID)
	}
	return src.Fetch(ctx, dataSourceID)
}

// Chain tries each source in order and returns the first answer that is not
// ErrUnknownSource. Nil sources are skipped.
type Chain []Source

// Fetch implements Source.
func (c Chain) Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		rows, err := src.Fetch(ctx, dataSourceID)
		if errors.Is(err, ErrUnknownSource) {
			continue
		}
		return rows, err
	}
	return nil, unknown(dataSourceID)
}
