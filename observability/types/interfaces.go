// Package types holds the contracts shared by the observability provider,
// its logger and metrics implementations, and the mocks used in tests.
package types

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines the contract for structured logging.
// Implementations emit one JSON object per line so the output can be shipped
// to Loki or any other line-oriented aggregator unchanged.
// All methods are context-aware so trace and job identifiers stored in the
// context end up on every entry.
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs a failure together with the error that caused it.
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs a condition that did not stop the operation.
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs detail that is only useful while troubleshooting.
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a child logger that adds fields to every entry.
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for operation metrics.
// Operation names are free-form labels such as "start_download" or "poll".
type Metrics interface {
	// RecordSuccess counts a successful operation.
	RecordSuccess(operation string)

	// RecordError counts a failed operation, broken down by error type.
	RecordError(operation string, errorType string)

	// RecordDuration observes how long an operation took, in seconds.
	RecordDuration(operation string, duration float64)

	// RecordVideoCount observes how many videos an analysis produced.
	RecordVideoCount(kind string, count int)

	// StartOperation marks an operation as in flight.
	StartOperation(operation string)

	// EndOperation marks an in-flight operation as finished.
	EndOperation(operation string)
}

// Fields is the structured payload attached to log entries.
type Fields map[string]interface{}

// Config configures an observability Provider.
type Config struct {
	// ServiceName prefixes every logger's service field.
	ServiceName string

	// Environment is reported as the env field (local, staging, production).
	Environment string

	// LogLevel is the minimum level written: debug, info, warn or error.
	LogLevel string

	// LogOutput receives the JSON lines. Defaults to os.Stdout.
	LogOutput io.Writer

	// AdditionalFields are attached to every entry of every logger.
	AdditionalFields Fields

	// Registerer receives every metric collector. Defaults to
	// prometheus.DefaultRegisterer; tests pass a fresh registry.
	Registerer prometheus.Registerer
}

// Provider hands out loggers and metrics keyed by component name.
type Provider interface {
	Logger(component string) Logger
	Metrics(component string) Metrics
	Close() error
}

// ContextKey is the type of the context keys read by loggers.
type ContextKey string

// Context keys populated by the handler middleware and the coordinator.
const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	JobIDKey     ContextKey = "job_id"
	WorkerKey    ContextKey = "worker"
	PlatformKey  ContextKey = "platform"
)
