package handler

import (
	"os"

	"ytdlpro/config"
	"ytdlpro/observability"
)

// Platform identifiers.
const (
	PlatformHTTP   = "http"
	PlatformLambda = "lambda"
)

// Factory builds handlers with the standard middleware stack.
type Factory struct {
	provider   observability.Provider
	handlerCfg config.HandlerConfig
	retryCfg   config.RetryConfig
}

// NewFactory creates a factory with default handler and retry settings.
func NewFactory(provider observability.Provider) *Factory {
	return &Factory{
		provider:   provider,
		handlerCfg: config.DefaultHandlerConfig(),
		retryCfg:   config.DefaultRetryConfig(),
	}
}

// WithHandlerConfig sets custom handler configuration.
func (f *Factory) WithHandlerConfig(cfg config.HandlerConfig) *Factory {
	f.handlerCfg = cfg
	return f
}

// WithRetryConfig sets custom retry configuration.
func (f *Factory) WithRetryConfig(cfg config.RetryConfig) *Factory {
	f.retryCfg = cfg
	return f
}

// Create wraps worker for the configured platform, detecting it when unset.
func (f *Factory) Create(worker Worker) *Handler {
	cfg := f.handlerCfg
	if cfg.Platform == "" || cfg.Platform == "auto" {
		cfg.Platform = DetectPlatform()
	}

	handler := NewHandler(worker, f.provider, &cfg)
	f.applyDefaultMiddleware(handler, &cfg)

	return handler
}

// CreateAll wraps every worker with the same configuration.
func (f *Factory) CreateAll(workers ...Worker) []*Handler {
	handlers := make([]*Handler, 0, len(workers))
	for _, w := range workers {
		handlers = append(handlers, f.Create(w))
	}
	return handlers
}

// Platform returns the platform handlers are created for.
func (f *Factory) Platform() string {
	if f.handlerCfg.Platform == "" || f.handlerCfg.Platform == "auto" {
		return DetectPlatform()
	}
	return f.handlerCfg.Platform
}

func (f *Factory) applyDefaultMiddleware(handler *Handler, cfg *config.HandlerConfig) {
	// outermost: catches panics from every other layer
	handler.Use(RecoveryMiddleware(f.provider))

	if cfg.Timeout > 0 {
		handler.Use(TimeoutMiddleware(cfg.Timeout))
	}

	if cfg.EnableTracing {
		handler.Use(TracingMiddleware())
	}

	if cfg.EnableMetrics {
		handler.Use(MetricsMiddleware(f.provider))
	}

	handler.Use(LoggingMiddleware(f.provider))
	handler.Use(ValidationMiddleware())

	if f.retryCfg.MaxAttempts > 0 {
		retryCfg := f.retryCfg
		handler.Use(RetryMiddleware(&retryCfg))
	}
}

// DetectPlatform reports "lambda" inside the AWS Lambda runtime and
// "http" everywhere else.
func DetectPlatform() string {
	if _, exists := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); exists {
		return PlatformLambda
	}
	if _, exists := os.LookupEnv("AWS_LAMBDA_RUNTIME_API"); exists {
		return PlatformLambda
	}
	return PlatformHTTP
}
