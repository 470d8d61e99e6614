// Package handler runs serverless functions behind a middleware chain,
// independent of the platform (plain HTTP or AWS Lambda) that invokes them.
package handler

import (
	"context"
	"time"

	"ytdlpro/config"
	"ytdlpro/observability"
	"ytdlpro/observability/types"
)

// Handler wraps a Worker with middleware. Platform adapters call Handle.
type Handler struct {
	worker      Worker
	obs         observability.Provider
	middlewares []Middleware
	config      *config.HandlerConfig
}

// Middleware wraps a HandlerFunc to add a cross-cutting concern.
type Middleware func(next HandlerFunc) HandlerFunc

// HandlerFunc is the function signature for handling requests.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// NewHandler creates a handler without any middleware.
// Most callers should use the Factory instead.
func NewHandler(worker Worker, provider observability.Provider, cfg *config.HandlerConfig) *Handler {
	if cfg == nil {
		def := config.DefaultHandlerConfig()
		cfg = &def
	}
	return &Handler{
		worker:      worker,
		obs:         provider,
		config:      cfg,
		middlewares: []Middleware{},
	}
}

// Use appends middleware; the first added is the outermost.
func (h *Handler) Use(middleware Middleware) {
	h.middlewares = append(h.middlewares, middleware)
}

// Handle processes a request through the middleware chain and worker.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	handler := h.buildHandlerChain()

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	ctx = context.WithValue(ctx, types.RequestIDKey, req.ID)
	ctx = context.WithValue(ctx, types.WorkerKey, h.worker.Name())
	ctx = context.WithValue(ctx, types.PlatformKey, h.config.Platform)

	return handler(ctx, req)
}

// Shutdown records the final uptime metrics and logs the shutdown.
func Shutdown(ctx context.Context, logger observability.Logger, metrics observability.Metrics, startTime time.Time) {
	metrics.RecordSuccess("shutdown_initiated")

	logger.Info(ctx, "Shutting down gracefully", observability.Fields{
		"uptime_seconds": time.Since(startTime).Seconds(),
	})

	metrics.RecordDuration("service_uptime", time.Since(startTime).Seconds())
	metrics.RecordSuccess("shutdown_complete")

	logger.Info(ctx, "Shutdown complete", nil)
}

func (h *Handler) buildHandlerChain() HandlerFunc {
	handler := h.workerHandler

	for i := len(h.middlewares) - 1; i >= 0; i-- {
		handler = h.middlewares[i](handler)
	}

	return handler
}

// workerHandler is the innermost layer of the chain.
func (h *Handler) workerHandler(ctx context.Context, req Request) (Response, error) {
	return h.worker.Process(ctx, req)
}

// Health checks the health of the worker.
func (h *Handler) Health(ctx context.Context) error {
	return h.worker.Health(ctx)
}

// Config returns the handler configuration.
func (h *Handler) Config() *config.HandlerConfig {
	return h.config
}

// Worker returns the underlying worker.
func (h *Handler) Worker() Worker {
	return h.worker
}
