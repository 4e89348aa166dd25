package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Section     string
	Parallelism int
	NoCache     bool

	// PassIDs overrides the pass id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	PassIDs engine.PassIDGenerator
	// Clock overrides the execution clock (for testing).
	Clock engine.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <report>",
		Short: "Resolve every section of a report",
		Long: `Fetch data and execute every section of a report in dependency order.

Sections run after the sections they depend on. A dependency cycle aborts
the run before any data is fetched in parallel mode, and at the first
cycle found in sequential mode.

Example:
  reportcore run ./reports/sales.yaml
  reportcore run --parallel 4 --format json ./reports/sales.cue
  reportcore run --section by-region ./reports/sales.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Section, "section", "s", "", "print only this section's result")
	cmd.Flags().IntVarP(&opts.Parallelism, "parallel", "p", 0, "sections executed concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "bypass the configured result cache")

	return cmd
}

func runReport(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, logger, formatter, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	def, err := loadReport(formatter, path)
	if err != nil {
		return err
	}
	if opts.Section != "" {
		if _, ok := def.Section(opts.Section); !ok {
			_ = formatter.Error(ErrCodeNoSection, fmt.Sprintf("section %q not found", opts.Section), def.SectionIDs())
			return NewExitError(ExitCommandError, ErrCodeNoSection+": section not found")
		}
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	runOpts := report.RunOptions{
		Parallelism: cfg.Engine.Parallelism,
		HTTPTimeout: cfg.DataSource.HTTP.Timeout,
		Logger:      logger,
		Sorter:      sorter(cfg),
		PassIDs:     opts.PassIDs,
		Clock:       opts.Clock,
		CacheTTL:    cfg.Cache.TTL,
	}
	if opts.Parallelism > 0 {
		runOpts.Parallelism = opts.Parallelism
	}
	if !opts.NoCache {
		c, closeCache, err := newCache(ctx, cfg, logger)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeConfig+": failed to set up cache", err)
		}
		defer closeCache()
		runOpts.Cache = c
	}

	formatter.VerboseLog("Running report %q (%d sections, parallelism %d)", def.Name, len(def.Sections), runOpts.Parallelism)
	res, err := report.Run(ctx, def, runOpts)
	if err != nil {
		return runError(formatter, res, err)
	}

	if opts.Section != "" {
		result, ok := res.Results[opts.Section]
		if !ok {
			return formatter.Success(fmt.Sprintf("section %q has no query", opts.Section))
		}
		view := resultView{Section: opts.Section, QueryResult: result}
		if result.Failed() {
			_ = formatter.Failure(ErrCodeQuery, result.Error, view)
			return NewExitError(ExitFailure, ErrCodeQuery+": section query failed")
		}
		return formatter.Success(view)
	}

	if failed := failedSections(res); len(failed) > 0 {
		_ = formatter.Failure(ErrCodeQuery, fmt.Sprintf("%d section(s) failed: %v", len(failed), failed), resolutionView{res})
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d section(s) failed", ErrCodeQuery, len(failed)))
	}
	return formatter.Success(resolutionView{res})
}

// runError maps a resolution error to output and an exit code.
func runError(f *OutputFormatter, res *engine.Resolution, err error) error {
	switch {
	case engine.IsCycleError(err):
		_ = f.Error(ErrCodeCycle, err.Error(), nil)
		return WrapExitError(ExitFailure, ErrCodeCycle+": dependency cycle", err)
	case engine.IsCancelled(err):
		var partial any
		if res != nil {
			partial = resolutionView{res}
		}
		_ = f.Failure(ErrCodeCancelled, err.Error(), partial)
		return WrapExitError(ExitFailure, ErrCodeCancelled+": interrupted", err)
	default:
		return sourceError(f, err)
	}
}

func failedSections(res *engine.Resolution) []string {
	var failed []string
	for id, r := range res.Results {
		if r.Failed() {
			failed = append(failed, id)
		}
	}
	sort.Strings(failed)
	return failed
}
