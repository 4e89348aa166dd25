package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reportcore/internal/record"
)

// DatasetInfo summarises one stored data set.
type DatasetInfo struct {
	ID         string    `json:"id"`
	RowCount   int       `json:"rowCount"`
	ImportedAt time.Time `json:"importedAt"`
}

// ReadDataset returns the rows of a data set in write order.
//
// Returns an error wrapping ErrNotFound if id was never written, and an
// empty slice (not nil) for a data set written with zero rows.
func (s *Store) ReadDataset(ctx context.Context, id string) ([]record.Record, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT row_count FROM datasets WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query dataset %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT data
		FROM dataset_rows
		WHERE dataset_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query dataset rows %q: %w", id, err)
	}
	defer rows.Close()

	out := make([]record.Record, 0, count)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		r, err := unmarshalRow(data)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", id, err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset rows: %w", err)
	}
	return out, nil
}

// ListDatasets returns every stored data set ordered by id.
func (s *Store) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, row_count, imported_at
		FROM datasets
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	infos := []DatasetInfo{}
	for rows.Next() {
		var info DatasetInfo
		var imported string
		if err := rows.Scan(&info.ID, &info.RowCount, &imported); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		info.ImportedAt, err = time.Parse(timeLayout, imported)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: bad imported_at %q: %w", info.ID, imported, err)
		}
		infos = append(infos, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return infos, nil
}
