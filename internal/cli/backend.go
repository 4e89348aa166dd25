package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/config"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/report"
)

// newCache builds the configured result cache. The returned cache is nil
// for the "none" backend; the closer is never nil.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheMemory:
		return cache.NewMemoryCache(cache.WithMaxEntries(cfg.Cache.MaxEntries)), noop, nil

	case config.CacheRedis:
		client := cache.NewRedisClient(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
		rc := cache.NewRedisCache(client, cfg.Cache.Redis.Prefix)
		if err := rc.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis %s: %w", cfg.Cache.Redis.Addr, err)
		}
		logger.Debug("redis cache connected", "addr", cfg.Cache.Redis.Addr, "db", cfg.Cache.Redis.DB)
		return rc, client.Close, nil

	default:
		return nil, noop, nil
	}
}

// sorter returns the sorter for the configured collation locale.
func sorter(cfg *config.Config) *engine.Sorter {
	return engine.NewSorter(cfg.Engine.Tag())
}

// signalContext derives a context cancelled on SIGINT/SIGTERM. The command
// context is used as parent when set (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadReport reads a definition and reports load failures through f.
func loadReport(f *OutputFormatter, path string) (*report.Definition, error) {
	def, err := report.Load(path)
	if err == nil {
		return def, nil
	}

	var lerr *report.LoadError
	details := any(nil)
	if errors.As(err, &lerr) && lerr.Line > 0 {
		details = map[string]any{"file": lerr.File, "line": lerr.Line, "column": lerr.Column}
	}
	_ = f.Error(ErrCodeLoad, err.Error(), details)
	return nil, WrapExitError(ExitCommandError, ErrCodeLoad+": failed to load report", err)
}

// sourceError reports source setup failures through f.
func sourceError(f *OutputFormatter, err error) error {
	_ = f.Error(ErrCodeSources, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeSources+": failed to set up data sources", err)
}
