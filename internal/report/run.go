package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/engine"
)

// RunOptions configures Run. The zero value executes sequentially without
// caching, with the default logger and system clock.
type RunOptions struct {
	Parallelism int
	HTTPTimeout time.Duration

	Logger   *slog.Logger
	Observer engine.Observer
	Clock    engine.Clock
	PassIDs  engine.PassIDGenerator
	Sorter   *engine.Sorter

	// Cache, when set, serves repeated queries within and across runs of
	// the same definition. Keys are scoped by Definition.CacheScope.
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Run builds the definition's sources and resolves every section.
//
// Source construction errors and dependency cycles are returned as errors.
// Failures of individual queries are reported in the resolution results.
func Run(ctx context.Context, d *Definition, opts RunOptions) (*engine.Resolution, error) {
	mux, closeSources, err := d.Sources(SourceOptions{HTTPTimeout: opts.HTTPTimeout})
	if err != nil {
		return nil, fmt.Errorf("report %q: %w", d.Name, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("report", d.Name)

	defer func() {
		if cerr := closeSources(); cerr != nil {
			logger.Warn("closing data sources", "error", cerr)
		}
	}()

	orchOpts := []engine.OrchestratorOption{engine.WithLogger(logger)}
	if opts.Observer != nil {
		orchOpts = append(orchOpts, engine.WithObserver(opts.Observer))
	}
	if opts.Clock != nil {
		orchOpts = append(orchOpts, engine.WithClock(opts.Clock))
	}
	if opts.Sorter != nil {
		orchOpts = append(orchOpts, engine.WithSorter(opts.Sorter))
	}

	var exec engine.Executor = engine.NewOrchestrator(mux, orchOpts...)
	if opts.Cache != nil {
		if scope, err := d.CacheScope(); err != nil {
			logger.Warn("running uncached", "error", err)
		} else {
			exec = cache.NewCachingExecutor(exec, opts.Cache, opts.CacheTTL, logger, cache.WithKeyScope(scope))
		}
	}

	resOpts := []engine.ResolverOption{engine.WithResolverLogger(logger)}
	if opts.Parallelism > 1 {
		resOpts = append(resOpts, engine.WithParallelism(opts.Parallelism))
	}
	if opts.PassIDs != nil {
		resOpts = append(resOpts, engine.WithPassIDGenerator(opts.PassIDs))
	}
	return engine.NewResolver(exec, resOpts...).Resolve(ctx, d.Sections)
}
