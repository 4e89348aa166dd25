package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/reportcore/internal/record"
	"github.com/roach88/reportcore/internal/store"
)

// SQLiteSource serves data sets persisted in a SQLite store.
type SQLiteSource struct {
	store *store.Store
}

// NewSQLiteSource wraps an open store. The caller keeps ownership and
// closes it.
func NewSQLiteSource(st *store.Store) *SQLiteSource {
	return &SQLiteSource{store: st}
}

// OpenSQLite opens (or creates) the database at path and returns a source
// reading from it. Close the returned source when done.
func OpenSQLite(path string) (*SQLiteSource, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite source: %w", err)
	}
	return NewSQLiteSource(st), nil
}

// Import stores rows under id, replacing any previous data set.
func (s *SQLiteSource) Import(ctx context.Context, id string, rows []record.Record) error {
	return s.store.WriteDataset(ctx, id, rows)
}

// Datasets lists the stored data sets.
func (s *SQLiteSource) Datasets(ctx context.Context) ([]store.DatasetInfo, error) {
	return s.store.ListDatasets(ctx)
}

// Fetch reads the data set stored under dataSourceID.
func (s *SQLiteSource) Fetch(ctx context.Context, dataSourceID string) ([]record.Record, error) {
	rows, err := s.store.ReadDataset(ctx, dataSourceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, unknown(dataSourceID)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the underlying store.
func (s *SQLiteSource) Close() error {
	return s.store.Close()
}
