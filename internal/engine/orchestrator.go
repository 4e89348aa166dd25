package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/record"
)

// Executor runs one data query to a result.
//
// Execute never returns an error: failures are captured in
// QueryResult.Error. Implemented by Orchestrator and by caching decorators.
type Executor interface {
	Execute(ctx context.Context, q query.DataQuery) query.QueryResult
}

// QueryObservation describes one finished execution for an Observer.
type QueryObservation struct {
	DataSourceID string
	Mode         query.Mode
	Duration     time.Duration
	Rows         int // rows returned after pagination
	TotalRows    int
	Failed       bool
}

// Observer is notified after every execution. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	ObserveQuery(obs QueryObservation)
}

// Orchestrator sequences fetch → filter → aggregate-or-project → sort →
// paginate for a single query.
//
// Thread-safety: an Orchestrator holds no per-query state and is safe for
// concurrent use as long as its Source is.
type Orchestrator struct {
	source   datasource.Source
	sorter   *Sorter
	clock    Clock
	logger   *slog.Logger
	observer Observer
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSorter sets the sorter (and so the collation locale).
// Default: DefaultSorter().
func WithSorter(s *Sorter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sorter = s
	}
}

// WithClock sets the clock used for executionTimeMs.
func WithClock(c Clock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithObserver registers an observer for execution outcomes.
func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// NewOrchestrator creates an orchestrator reading rows from source.
func NewOrchestrator(source datasource.Source, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source: source,
		sorter: DefaultSorter(),
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the pipeline for q.
//
// Pipeline (fixed order):
//  1. fetch raw rows for q.DataSourceID
//  2. keep rows satisfying every filter
//  3. aggregate, project or pass through, per query.ResolveMode
//  4. sort, when sort keys are given
//  5. record TotalRows
//  6. slice [offset, offset+limit) when a limit is set
//
// Any failure in steps 1-6, including a panic in the source, yields a
// result with empty Rows, TotalRows 0 and Error set. ExecutionTimeMs always
// covers the whole pipeline.
func (o *Orchestrator) Execute(ctx context.Context, q query.DataQuery) query.QueryResult {
	start := o.clock.Now()
	mode := query.ResolveMode(q)

	rows, total, err := o.run(ctx, q, mode)

	elapsed := o.clock.Now().Sub(start)
	result := query.QueryResult{
		Rows:            rows,
		TotalRows:       total,
		ExecutionTimeMs: elapsedMs(elapsed),
	}
	if err != nil {
		result.Rows = []record.Record{}
		result.TotalRows = 0
		result.Error = err.Error()
		o.logger.Error("query failed",
			"source", q.DataSourceID,
			"mode", mode.String(),
			"error", err,
		)
	}

	if o.observer != nil {
		o.observer.ObserveQuery(QueryObservation{
			DataSourceID: q.DataSourceID,
			Mode:         mode,
			Duration:     elapsed,
			Rows:         len(result.Rows),
			TotalRows:    result.TotalRows,
			Failed:       result.Failed(),
		})
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, q query.DataQuery, mode query.Mode) (rows []record.Record, total int, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, total = nil, 0
			err = &EngineError{
				Code:         ErrCodePanic,
				Message:      fmt.Sprintf("recovered panic: %v", r),
				DataSourceID: q.DataSourceID,
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, 0, NewCancelledError("", err)
	}

	raw, err := o.source.Fetch(ctx, q.DataSourceID)
	if err != nil {
		return nil, 0, NewFetchError(q.DataSourceID, err)
	}
	o.logger.Debug("fetched rows", "source", q.DataSourceID, "rows", len(raw))

	rows = ApplyFilters(raw, q.Filters)

	switch mode {
	case query.ModeAggregation:
		rows = Aggregate(rows, q.Dimensions, q.Measures)
	case query.ModeProjection:
		rows = Project(rows, q.Dimensions)
	}

	if len(q.Sorts) > 0 {
		rows = o.sorter.Sort(rows, q.Sorts)
	}

	total = len(rows)
	rows = Paginate(rows, q.Limit, q.Offset)

	o.logger.Debug("query executed",
		"source", q.DataSourceID,
		"mode", mode.String(),
		"total", total,
		"returned", len(rows),
	)
	return rows, total, nil
}

// Paginate returns rows[offset:offset+limit].
//
// A nil limit returns every row. A nil or negative offset counts as 0.
// Windows past the end are clipped; the result is never nil.
func Paginate(rows []record.Record, limit, offset *int) []record.Record {
	if limit == nil {
		if rows == nil {
			return []record.Record{}
		}
		return rows
	}

	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start >= len(rows) || *limit <= 0 {
		return []record.Record{}
	}

	end := len(rows)
	if *limit < end-start {
		end = start + *limit
	}
	return rows[start:end]
}
