// Package store provides SQLite-backed storage for report data sets.
//
// A data set is an ordered sequence of flat records stored under an id.
// The store backs the disk-based data source: reports that should not
// depend on a live upstream import their rows once and read them on every
// execution.
//
// # Layout
//
//   - datasets: one row per data set (id, row count, import time)
//   - dataset_rows: one row per record, keyed by (dataset_id, seq)
//
// Records are stored as JSON TEXT with sorted keys and no HTML escaping.
// Reads always ORDER BY seq, so a data set comes back in the order it was
// written.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
