package observability

import (
	"io"
	"maps"
	"os"
	"sync"

	"ytdlpro/observability/logger"
	"ytdlpro/observability/metrics"
	"ytdlpro/observability/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Type aliases so callers only import this package.
type (
	Logger     = types.Logger
	Metrics    = types.Metrics
	Fields     = types.Fields
	Config     = types.Config
	Provider   = types.Provider
	ContextKey = types.ContextKey
)

// DefaultProvider caches one Logger and one Metrics per component.
type DefaultProvider struct {
	config  *Config
	mu      sync.Mutex
	loggers map[string]Logger
	metrics map[string]Metrics
}

// NewProvider creates a provider. Output defaults to os.Stdout and metrics
// register with prometheus.DefaultRegisterer unless config says otherwise.
func NewProvider(config *Config) Provider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	return &DefaultProvider{
		config:  config,
		loggers: make(map[string]Logger),
		metrics: make(map[string]Metrics),
	}
}

// memo returns cache[key], building and storing it on first use. Metrics
// register collectors, so building twice for one component would fail.
func memo[T any](mu *sync.Mutex, cache map[string]T, key string, build func() T) T {
	mu.Lock()
	defer mu.Unlock()

	if v, ok := cache[key]; ok {
		return v
	}
	v := build()
	cache[key] = v
	return v
}

// Logger returns the logger for component. It reports service
// "<ServiceName>.<component>" and carries a component field.
func (p *DefaultProvider) Logger(component string) Logger {
	return memo(&p.mu, p.loggers, component, func() Logger {
		fields := maps.Clone(p.config.AdditionalFields)
		if fields == nil {
			fields = Fields{}
		}
		fields["component"] = component

		return logger.New(
			p.config.ServiceName+"."+component,
			p.config.Environment,
			p.config.LogLevel,
			p.config.LogOutput,
			fields,
		)
	})
}

// Metrics returns the metrics for component.
func (p *DefaultProvider) Metrics(component string) Metrics {
	return memo(&p.mu, p.metrics, component, func() Metrics {
		return metrics.New(component, p.config.Registerer)
	})
}

// Close closes the log output unless it is stdout or stderr.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closer, ok := p.config.LogOutput.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
