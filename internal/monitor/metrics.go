package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	Registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RateLimitDenials  *prometheus.CounterVec
	ValidationErrors  *prometheus.CounterVec
	ParseOutcomes     *prometheus.CounterVec
	FallbacksTotal    *prometheus.CounterVec
	ActiveOperations  prometheus.Gauge
	RequestsInFlight  prometheus.Gauge
	OutputSizeBytes   prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics using a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bridge",
				Name:      "operations_total",
				Help:      "Total number of bridge operations by name and status.",
			},
			[]string{"operation", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bridge",
				Name:      "operation_duration_seconds",
				Help:      "Duration of bridge operations in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		RateLimitDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bridge",
				Name:      "rate_limit_denials_total",
				Help:      "Total operations denied by the rate limiter, by class.",
			},
			[]string{"class"},
		),

		ValidationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bridge",
				Name:      "validation_errors_total",
				Help:      "Total inputs rejected by the validator, by field.",
			},
			[]string{"field"},
		),

		ParseOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bridge",
				Name:      "parse_outcomes_total",
				Help:      "Primary-output parse cascade outcomes by winning rule.",
			},
			[]string{"rule"},
		),

		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bridge",
				Name:      "fallbacks_total",
				Help:      "Total secondary-path attempts by operation.",
			},
			[]string{"operation"},
		),

		ActiveOperations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bridge",
				Name:      "active_operations",
				Help:      "Number of currently running bridge operations.",
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bridge",
				Subsystem: "api",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed.",
			},
		),

		OutputSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bridge",
				Name:      "output_size_bytes",
				Help:      "Size of raw automation output in bytes.",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}

	// Register all collectors
	reg.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.RateLimitDenials,
		m.ValidationErrors,
		m.ParseOutcomes,
		m.FallbacksTotal,
		m.ActiveOperations,
		m.RequestsInFlight,
		m.OutputSizeBytes,
	)

	return m
}

// RecordOperation records metrics for a completed operation.
func (m *Metrics) RecordOperation(operation, status string, durationSec float64) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordRateLimitDenial records a rate-limit denial for a class.
func (m *Metrics) RecordRateLimitDenial(class string) {
	m.RateLimitDenials.WithLabelValues(class).Inc()
}

// RecordParseOutcome records which cascade rule won for a primary output.
func (m *Metrics) RecordParseOutcome(rule string) {
	m.ParseOutcomes.WithLabelValues(rule).Inc()
}
