// Package metrics exposes the pipeline's Prometheus collectors.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of the service.
type Registry struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Extraction
	ExtractRecords  *prometheus.HistogramVec
	ExtractFailures *prometheus.CounterVec
	OverlaysPurged  prometheus.Counter

	// Calculations
	CalculationsTotal   *prometheus.CounterVec
	CalculationDuration *prometheus.HistogramVec
	NoticesTotal        *prometheus.CounterVec
	OverlaysRendered    prometheus.Counter

	// Solver
	SolverRequestsTotal *prometheus.CounterVec
	SolverDuration      *prometheus.HistogramVec
	SolverBreakerState  prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// Default returns the process-wide registry.
func Default() *Registry {
	once.Do(func() { defaultRegistry = NewRegistry() })
	return defaultRegistry
}

// NewRegistry creates a registry with every collector registered, plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	r := &Registry{registry: reg}

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gridlink_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "status"})
	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridlink_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	r.ExtractRecords = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridlink_extract_records",
		Help:    "Component records per extraction pass.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"calc"})
	r.ExtractFailures = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gridlink_extract_element_failures_total",
		Help: "Elements excluded from a network model.",
	}, []string{"calc"})
	r.OverlaysPurged = f.NewCounter(prometheus.CounterOpts{
		Name: "gridlink_overlays_purged_total",
		Help: "Stale result overlays removed before extraction.",
	})

	r.CalculationsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gridlink_calculations_total",
		Help: "Calculations run, by outcome.",
	}, []string{"calc", "status"})
	r.CalculationDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridlink_calculation_duration_seconds",
		Help:    "End-to-end calculation latency.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"calc"})
	r.NoticesTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gridlink_notices_total",
		Help: "User-facing notices raised.",
	}, []string{"severity"})
	r.OverlaysRendered = f.NewCounter(prometheus.CounterOpts{
		Name: "gridlink_overlays_rendered_total",
		Help: "Result overlays added to diagrams.",
	})

	r.SolverRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "gridlink_solver_requests_total",
		Help: "Solver round trips, by transport and outcome.",
	}, []string{"transport", "status"})
	r.SolverDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridlink_solver_duration_seconds",
		Help:    "Solver round-trip latency.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"transport"})
	r.SolverBreakerState = f.NewGauge(prometheus.GaugeOpts{
		Name: "gridlink_solver_breaker_state",
		Help: "Solver circuit breaker state: 0 closed, 1 open, 2 half-open.",
	})
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
