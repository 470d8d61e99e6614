// Package metrics provides the Prometheus implementation of types.Metrics.
// Every component gets its own metric family prefix, so the coordinator and
// the HTTP handler can be told apart on the same /metrics page.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements types.Metrics on top of client_golang vectors.
type PrometheusMetrics struct {
	namespace string

	// processedTotal counts outcomes by status (success/error) and operation
	processedTotal *prometheus.CounterVec
	// errorsTotal breaks failures down by error type
	errorsTotal *prometheus.CounterVec
	// durationSeconds observes operation latency
	durationSeconds *prometheus.HistogramVec
	// videoCount observes how many videos an analysis reported
	videoCount *prometheus.HistogramVec
	// inProgress tracks concurrently running operations
	inProgress *prometheus.GaugeVec
}

// New creates the metric vectors for component and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. Registering the same component
// twice on one registry reuses the collectors that are already registered.
//
// Metrics created:
//   - {component}_processed_total{status,type}
//   - {component}_errors_total{error_type,operation}
//   - {component}_duration_seconds{operation}
//   - {component}_video_count{kind}
//   - {component}_in_progress{operation}
func New(component string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ns := SanitizeName(component)
	m := &PrometheusMetrics{namespace: ns}

	m.processedTotal = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_total", ns),
			Help: fmt.Sprintf("Total processed operations in %s", component),
		},
		[]string{"status", "type"},
	))

	m.errorsTotal = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", ns),
			Help: fmt.Sprintf("Total errors in %s", component),
		},
		[]string{"error_type", "operation"},
	))

	m.durationSeconds = register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_duration_seconds", ns),
			Help:    fmt.Sprintf("Operation duration in %s", component),
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	))

	m.videoCount = register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_video_count", ns),
			Help:    fmt.Sprintf("Videos per analysis in %s", component),
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"kind"},
	))

	m.inProgress = register(reg, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", ns),
			Help: fmt.Sprintf("Operations in progress in %s", component),
		},
		[]string{"operation"},
	))

	return m
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor. Any other registration error is a programming error.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Sprintf("metrics: register collector: %v", err))
	}
	return c
}

// SanitizeName maps an arbitrary component name onto the Prometheus metric
// name alphabet [a-zA-Z0-9_], never starting with a digit.
func SanitizeName(name string) string {
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

// RecordSuccess increments {component}_processed_total{status="success"}.
func (m *PrometheusMetrics) RecordSuccess(operation string) {
	m.processedTotal.WithLabelValues("success", operation).Inc()
}

// RecordError increments both the processed counter with status="error" and
// the detailed error counter.
func (m *PrometheusMetrics) RecordError(operation string, errorType string) {
	m.processedTotal.WithLabelValues("error", operation).Inc()
	m.errorsTotal.WithLabelValues(errorType, operation).Inc()
}

// RecordDuration observes duration seconds for operation.
//
// Example:
//
//	start := time.Now()
//	// ... call the remote ...
//	m.RecordDuration("analyze", time.Since(start).Seconds())
func (m *PrometheusMetrics) RecordDuration(operation string, duration float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordVideoCount observes the number of videos an analysis returned.
func (m *PrometheusMetrics) RecordVideoCount(kind string, count int) {
	m.videoCount.WithLabelValues(kind).Observe(float64(count))
}

// StartOperation increments the in-progress gauge. Pair it with EndOperation.
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge.
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}
