package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	evaluations    *prometheus.CounterVec
	evalLatency    prometheus.Histogram
	cacheLookups   *prometheus.CounterVec
	sweeps         *prometheus.CounterVec
	levelChanges   *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Errors returned to clients by domain error code.",
		}, []string{"route", "method", "code"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_evaluations_total",
			Help: "SLA evaluations by resulting level.",
		}, []string{"level"}),
		evalLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sla_evaluation_duration_seconds",
			Help:    "Time spent loading inputs and evaluating one ticket.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_config_cache_lookups_total",
			Help: "SLA configuration cache lookups by result.",
		}, []string{"result"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_sweeps_total",
			Help: "Completed SLA sweeps by outcome.",
		}, []string{"outcome"}),
		levelChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_level_changes_total",
			Help: "SLA level transitions published by the sweeper.",
		}, []string{"level"}),
	}
	m.registry.MustRegister(
		m.requests, m.requestLatency, m.errors,
		m.evaluations, m.evalLatency, m.cacheLookups,
		m.sweeps, m.levelChanges,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordEvaluation counts one SLA evaluation.
func (m *Metrics) RecordEvaluation(level string, duration time.Duration) {
	if m == nil {
		return
	}
	if level == "" {
		level = "unconfigured"
	}
	m.evaluations.WithLabelValues(level).Inc()
	m.evalLatency.Observe(duration.Seconds())
}

// RecordCacheLookup counts a configuration cache hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordSweep counts a finished sweep.
func (m *Metrics) RecordSweep(outcome string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(outcome).Inc()
}

// RecordLevelChange counts a published level transition.
func (m *Metrics) RecordLevelChange(level string) {
	if m == nil {
		return
	}
	m.levelChanges.WithLabelValues(level).Inc()
}
