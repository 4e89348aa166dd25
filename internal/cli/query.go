package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/query"
	"github.com/roach88/reportcore/internal/report"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Limit  int
	Offset int

	// Clock overrides the execution clock (for testing).
	Clock engine.Clock
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <report> <section>",
		Short: "Execute one section's query",
		Long: `Execute the data query of a single section, ignoring its dependencies.

--limit and --offset override the section's pagination, which makes it
easy to page through a large result.

Example:
  reportcore query ./reports/sales.yaml by-region
  reportcore query --limit 10 --offset 20 ./reports/sales.yaml detail`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (overrides the section)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip (overrides the section)")

	return cmd
}

func runQuery(opts *QueryOptions, path, sectionID string, cmd *cobra.Command) error {
	cfg, logger, formatter, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	def, err := loadReport(formatter, path)
	if err != nil {
		return err
	}
	sec, ok := def.Section(sectionID)
	if !ok {
		_ = formatter.Error(ErrCodeNoSection, fmt.Sprintf("section %q not found", sectionID), def.SectionIDs())
		return NewExitError(ExitCommandError, ErrCodeNoSection+": section not found")
	}
	if sec.DataQuery == nil {
		_ = formatter.Error(ErrCodeNoSection, fmt.Sprintf("section %q has no query", sectionID), nil)
		return NewExitError(ExitCommandError, ErrCodeNoSection+": section has no query")
	}

	q := *sec.DataQuery
	if cmd.Flags().Changed("limit") {
		q.Limit = query.Int(opts.Limit)
	}
	if cmd.Flags().Changed("offset") {
		q.Offset = query.Int(opts.Offset)
	}

	if v := query.Validate(q); !v.Valid {
		msg := engine.NewValidationError(sectionID, v.Errors).Message
		_ = formatter.Failure(ErrCodeInvalid, msg, v)
		return NewExitError(ExitFailure, ErrCodeInvalid+": "+msg)
	}

	mux, closeSources, err := def.Sources(report.SourceOptions{HTTPTimeout: cfg.DataSource.HTTP.Timeout})
	if err != nil {
		return sourceError(formatter, err)
	}
	defer closeSources()

	ctx, stop := signalContext(cmd)
	defer stop()

	orchOpts := []engine.OrchestratorOption{engine.WithLogger(logger), engine.WithSorter(sorter(cfg))}
	if opts.Clock != nil {
		orchOpts = append(orchOpts, engine.WithClock(opts.Clock))
	}
	var exec engine.Executor = engine.NewOrchestrator(mux, orchOpts...)

	c, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeConfig+": failed to set up cache", err)
	}
	defer closeCache()
	if c != nil {
		if scope, err := def.CacheScope(); err != nil {
			logger.Warn("running uncached", "error", err)
		} else {
			exec = cache.NewCachingExecutor(exec, c, cfg.Cache.TTL, logger, cache.WithKeyScope(scope))
		}
	}

	result := exec.Execute(ctx, q)
	view := resultView{Section: sectionID, QueryResult: result}
	if result.Failed() {
		_ = formatter.Failure(ErrCodeQuery, result.Error, view)
		return NewExitError(ExitFailure, ErrCodeQuery+": query failed")
	}
	return formatter.Success(view)
}
