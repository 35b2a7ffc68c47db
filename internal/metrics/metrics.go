// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Run metrics
	RunsCompleted *prometheus.CounterVec
	RunsFailed    *prometheus.CounterVec

	// Acquisition metrics
	WarpAttempts  prometheus.Counter
	RetryAttempts prometheus.Counter

	// Timing metrics
	StageDuration *prometheus.HistogramVec

	// Data metrics
	PixelsProcessed prometheus.Gauge
	ElevationMin    prometheus.Gauge
	ElevationMax    prometheus.Gauge
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "opendem"
	}

	m := &Metrics{
		RunsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of completed pipeline runs",
			},
			[]string{"process", "format"},
		),
		RunsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_failed_total",
				Help:      "Total number of failed pipeline runs",
			},
			[]string{"process"},
		),
		WarpAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warp_attempts_total",
				Help:      "Total warp attempts including retries",
			},
		),
		RetryAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total acquisition retries after transient network failures",
			},
		),
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"stage"},
		),
		PixelsProcessed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pixels_processed",
				Help:      "Pixel count of the last processed grid",
			},
		),
		ElevationMin: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "elevation_min_meters",
				Help:      "Minimum decoded elevation of the last run",
			},
		),
		ElevationMax: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "elevation_max_meters",
				Help:      "Maximum decoded elevation of the last run",
			},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance, or nil before Init.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer serves the metrics endpoint on the given address.
func StartServer(address string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(address, nil)
}

// IncRunsCompleted records a completed run.
func (m *Metrics) IncRunsCompleted(process, format string) {
	m.RunsCompleted.WithLabelValues(process, format).Inc()
}

// IncRunsFailed records a failed run.
func (m *Metrics) IncRunsFailed(process string) {
	m.RunsFailed.WithLabelValues(process).Inc()
}

// IncWarpAttempts records one warp attempt.
func (m *Metrics) IncWarpAttempts() {
	m.WarpAttempts.Inc()
}

// IncRetryAttempts records one transient-failure retry.
func (m *Metrics) IncRetryAttempts() {
	m.RetryAttempts.Inc()
}

// ObserveStageDuration records a stage duration.
func (m *Metrics) ObserveStageDuration(stage string, seconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// SetElevationStats records the decoded elevation range.
func (m *Metrics) SetElevationStats(min, max float64) {
	m.ElevationMin.Set(min)
	m.ElevationMax.Set(max)
}

// SetPixelsProcessed records the grid size.
func (m *Metrics) SetPixelsProcessed(count float64) {
	m.PixelsProcessed.Set(count)
}
