package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/metrics"
	"github.com/roach88/reportcore/internal/report"
	"github.com/roach88/reportcore/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Reports  []string
	Database string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Serve query validation, execution and report resolution over HTTP.

Data sources come from a dataset database (--db) and from the data source
declarations of report files (--report, repeatable). Requests may also
carry their own rows.

Endpoints:
  POST /v1/queries/validate
  POST /v1/queries/execute
  POST /v1/reports/resolve
  GET  /metrics
  GET  /health`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringSliceVar(&opts.Reports, "report", nil, "report file whose data sources are served")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite dataset database to serve")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, logger, formatter, err := opts.setup(cmd)
	if err != nil {
		return err
	}

	var sources datasource.Chain
	var closers []func() error
	var scopeParts []string
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("closing data source", "error", err)
			}
		}
	}()

	if opts.Database != "" {
		db, err := datasource.OpenSQLite(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore+": failed to open database", err)
		}
		closers = append(closers, db.Close)
		sources = append(sources, db)
		scopeParts = append(scopeParts, "db:"+opts.Database)
	}
	for _, path := range opts.Reports {
		def, err := loadReport(formatter, path)
		if err != nil {
			return err
		}
		mux, closeSources, err := def.Sources(report.SourceOptions{HTTPTimeout: cfg.DataSource.HTTP.Timeout})
		if err != nil {
			return sourceError(formatter, fmt.Errorf("%s: %w", path, err))
		}
		closers = append(closers, closeSources)
		sources = append(sources, mux)
		scope, err := def.CacheScope()
		if err != nil {
			return sourceError(formatter, fmt.Errorf("%s: %w", path, err))
		}
		scopeParts = append(scopeParts, scope)
		logger.Info("serving report sources", "report", def.Name, "sources", mux.IDs())
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	collector := metrics.NewCollector()
	orch := engine.NewOrchestrator(sources,
		engine.WithLogger(logger),
		engine.WithSorter(sorter(cfg)),
		engine.WithObserver(collector),
	)

	var exec engine.Executor = orch
	c, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeConfig+": failed to set up cache", err)
	}
	closers = append(closers, closeCache)
	if c != nil {
		caching := cache.NewCachingExecutor(orch, c, cfg.Cache.TTL, logger, cache.WithKeyScope(serveScope(scopeParts)))
		collector.RegisterCacheStats(caching.Stats)
		exec = caching
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	srv := server.New(sources,
		server.WithExecutor(exec),
		server.WithOrchestratorOptions(engine.WithSorter(sorter(cfg))),
		server.WithParallelism(cfg.Engine.Parallelism),
		server.WithCollector(collector),
		server.WithLogger(logger),
		server.WithRateLimit(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
	)

	formatter.VerboseLog("Listening on %s", addr)
	if err := srv.Run(ctx, addr); err != nil {
		_ = formatter.Error(ErrCodeServer, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeServer+": server failed", err)
	}
	return nil
}

// serveScope keys the server's cache by the sources it serves, in order.
func serveScope(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "serve:" + hex.EncodeToString(sum[:8])
}
