// Package metrics exports query, cache and HTTP metrics in the Prometheus
// format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/reportcore/internal/cache"
	"github.com/roach88/reportcore/internal/engine"
)

const namespace = "reportcore"

// Collector owns a private registry. It implements engine.Observer, so an
// Orchestrator built WithObserver(c) reports every execution.
type Collector struct {
	registry *prometheus.Registry

	queries      *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	rows         *prometheus.CounterVec
	requests     *prometheus.CounterVec
	requestTimes *prometheus.HistogramVec
}

var _ engine.Observer = (*Collector)(nil)

// NewCollector registers the reportcore metrics plus the Go runtime and
// process collectors on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed data queries",
			},
			[]string{"source", "mode", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Data query execution time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "query_rows_total",
				Help:      "Rows returned by data queries after pagination",
			},
			[]string{"source"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(
		c.queries, c.duration, c.rows, c.requests, c.requestTimes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveQuery records one finished execution.
func (c *Collector) ObserveQuery(obs engine.QueryObservation) {
	status := "ok"
	if obs.Failed {
		status = "error"
	}
	mode := obs.Mode.String()
	c.queries.WithLabelValues(obs.DataSourceID, mode, status).Inc()
	c.duration.WithLabelValues(mode).Observe(obs.Duration.Seconds())
	c.rows.WithLabelValues(obs.DataSourceID).Add(float64(obs.Rows))
}

// ObserveRequest records one HTTP request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func (c *Collector) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.requestTimes.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RegisterCacheStats exports the counters of a caching executor. stats is
// read at scrape time.
func (c *Collector) RegisterCacheStats(stats func() cache.Stats) {
	counter := func(name, help string, read func(cache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Subsystem: "cache", Name: name, Help: help},
			func() float64 { return float64(read(stats())) },
		)
	}
	c.registry.MustRegister(
		counter("hits_total", "Queries served from the result cache", func(s cache.Stats) int64 { return s.Hits }),
		counter("misses_total", "Queries executed because the cache had no entry", func(s cache.Stats) int64 { return s.Misses }),
		counter("errors_total", "Cache backend failures", func(s cache.Stats) int64 { return s.Errors }),
	)
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry for /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
