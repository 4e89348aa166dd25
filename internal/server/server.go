// Package server exposes query validation, execution and report resolution
// over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/roach88/reportcore/internal/datasource"
	"github.com/roach88/reportcore/internal/engine"
	"github.com/roach88/reportcore/internal/metrics"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Server routes the HTTP API to the engine.
//
// Queries run against the configured source. A request may carry inline
// rows; those are served ahead of the configured source for that request
// only, and such requests bypass the executor (and so any cache) given
// with WithExecutor.
type Server struct {
	router *gin.Engine

	source      datasource.Source
	exec        engine.Executor
	orchOpts    []engine.OrchestratorOption
	parallelism int
	passIDs     engine.PassIDGenerator
	collector   *metrics.Collector
	logger      *slog.Logger

	limit rate.Limit
	burst int
}

// Option configures a Server.
type Option func(*Server)

// WithExecutor sets the executor used for requests without inline rows,
// typically a caching decorator around an Orchestrator over the same source.
func WithExecutor(e engine.Executor) Option {
	return func(s *Server) {
		s.exec = e
	}
}

// WithOrchestratorOptions sets the options of orchestrators the server
// builds itself.
func WithOrchestratorOptions(opts ...engine.OrchestratorOption) Option {
	return func(s *Server) {
		s.orchOpts = append(s.orchOpts, opts...)
	}
}

// WithParallelism sets the resolver parallelism of /v1/reports/resolve.
func WithParallelism(n int) Option {
	return func(s *Server) {
		s.parallelism = n
	}
}

// WithPassIDGenerator sets the resolution pass id generator.
func WithPassIDGenerator(g engine.PassIDGenerator) Option {
	return func(s *Server) {
		s.passIDs = g
	}
}

// WithCollector enables /metrics and request metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = c
	}
}

// WithLogger sets the request and engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRateLimit limits each client address to r requests per second with
// the given burst. r <= 0 disables limiting.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(s *Server) {
		s.limit = r
		s.burst = burst
	}
}

// New builds a server over source. source may be nil when every request
// carries its own rows.
func New(source datasource.Source, opts ...Option) *Server {
	s := &Server{
		source:      source,
		parallelism: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.exec = s.newOrchestrator(datasource.Chain{source})
	}
	s.router = s.routes()
	return s
}

func (s *Server) newOrchestrator(src datasource.Source) *engine.Orchestrator {
	opts := []engine.OrchestratorOption{engine.WithLogger(s.logger)}
	if s.collector != nil {
		opts = append(opts, engine.WithObserver(s.collector))
	}
	opts = append(opts, s.orchOpts...)
	return engine.NewOrchestrator(src, opts...)
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger, s.collector))
	if s.limit > 0 {
		router.Use(rateLimit(newClientLimiters(s.limit, s.burst)))
	}

	router.GET("/health", s.health)
	if s.collector != nil {
		router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}

	v1 := router.Group("/v1")
	v1.POST("/queries/validate", s.validateQuery)
	v1.POST("/queries/execute", s.executeQuery)
	v1.POST("/reports/resolve", s.resolveReport)
	return router
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
