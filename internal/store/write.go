package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/reportcore/internal/record"
)

// WriteDataset stores rows under id, replacing any previous rows.
//
// The write is atomic: readers see either the old data set or the new one.
// Row order is preserved via seq.
func (s *Store) WriteDataset(ctx context.Context, id string, rows []record.Record) error {
	if id == "" {
		return fmt.Errorf("write dataset: empty id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows WHERE dataset_id = ?`, id); err != nil {
		return fmt.Errorf("clear dataset %q: %w", id, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datasets (id, row_count, imported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			row_count = excluded.row_count,
			imported_at = excluded.imported_at
	`, id, len(rows), s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert dataset %q: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dataset_rows (dataset_id, seq, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		data, err := marshalRow(r)
		if err != nil {
			return fmt.Errorf("dataset %q row %d: %w", id, i, err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, data); err != nil {
			return fmt.Errorf("insert dataset %q row %d: %w", id, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit dataset %q: %w", id, err)
	}
	return nil
}

// DeleteDataset removes a data set and its rows. Deleting an unknown id
// returns ErrNotFound.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dataset %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete dataset %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

// Prune deletes every data set imported before cutoff and returns how many
// were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM datasets WHERE imported_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("prune datasets: %w", err)
	}
	return res.RowsAffected()
}
