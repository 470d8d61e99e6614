package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"ytdlpro/config"
	"ytdlpro/observability"
	"ytdlpro/observability/types"

	"github.com/google/uuid"
)

// traceHeaders are checked in order for an incoming trace id. Headers are
// stored lowercased in the request metadata.
var traceHeaders = []string{
	"x-trace-id",
	"x-request-id",
	"x-amzn-trace-id",
	"x-nf-request-id",
}

// failureCode classifies a function result: empty on success, otherwise the
// code used as the error type in logs and metrics.
func failureCode(resp Response, err error) string {
	switch {
	case err != nil:
		return "processing_error"
	case resp.Success:
		return ""
	case resp.Error != nil && resp.Error.Code != "":
		return resp.Error.Code
	}
	return "unknown_error"
}

func functionName(ctx context.Context, req Request) string {
	if name, _ := ctx.Value(types.WorkerKey).(string); name != "" {
		return name
	}
	if req.Type != "" {
		return req.Type
	}
	return "unknown"
}

// LoggingMiddleware logs one line per invocation with the resulting HTTP
// status and latency.
func LoggingMiddleware(provider observability.Provider) Middleware {
	base := provider.Logger("handler")

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			platform, _ := ctx.Value(types.PlatformKey).(string)
			logger := base.WithFields(types.Fields{
				"request_id": req.ID,
				"function":   functionName(ctx, req),
				"method":     req.Method,
				"platform":   platform,
			})

			logger.Debug(ctx, "Function invoked", types.Fields{"body_bytes": len(req.Payload)})

			start := time.Now()
			resp, err := next(ctx, req)
			resp.Duration = time.Since(start)

			fields := types.Fields{
				"status":      StatusCode(resp),
				"duration_ms": resp.Duration.Milliseconds(),
			}

			code := failureCode(resp, err)
			switch {
			case err != nil:
				logger.Error(ctx, "Function failed", err, fields)
			case code != "":
				fields["error_code"] = code
				if resp.Error != nil {
					fields["error"] = resp.Error.Message
				}
				logger.Warn(ctx, "Function rejected request", fields)
			default:
				logger.Info(ctx, "Function completed", fields)
			}

			return resp, err
		}
	}
}

// MetricsMiddleware records outcome, latency and in-flight count per function.
func MetricsMiddleware(provider observability.Provider) Middleware {
	metrics := provider.Metrics("handler")

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			name := functionName(ctx, req)

			metrics.StartOperation(name)
			defer metrics.EndOperation(name)

			start := time.Now()
			resp, err := next(ctx, req)
			metrics.RecordDuration(name, time.Since(start).Seconds())

			if code := failureCode(resp, err); code != "" {
				metrics.RecordError(name, code)
			} else {
				metrics.RecordSuccess(name)
			}

			return resp, err
		}
	}
}

// RecoveryMiddleware answers a panicking function with INTERNAL_ERROR. The
// panic value and stack go to the log only. Install it first.
func RecoveryMiddleware(provider observability.Provider) Middleware {
	logger := provider.Logger("handler")
	metrics := provider.Metrics("handler")

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				err = fmt.Errorf("panic in %s: %v", functionName(ctx, req), r)
				logger.Error(ctx, "Function panicked", err, types.Fields{
					"request_id": req.ID,
					"stack":      string(debug.Stack()),
				})
				metrics.RecordError(functionName(ctx, req), "panic")
				resp = NewErrorResponse(req.ID, CodeInternal, "Internal server error", "")
			}()

			return next(ctx, req)
		}
	}
}

// TracingMiddleware puts a trace id on the context and on the response,
// reusing the caller's when one of traceHeaders is present.
func TracingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			traceID := ""
			for _, h := range traceHeaders {
				if v, ok := req.GetMetadata(h); ok && v != "" {
					traceID = v
					break
				}
			}
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx = context.WithValue(ctx, types.TraceIDKey, traceID)
			ctx = context.WithValue(ctx, types.SpanIDKey, uuid.NewString())
			req.SetMetadata("trace_id", traceID)

			resp, err := next(ctx, req)
			resp.SetMetadata("trace_id", traceID)
			return resp, err
		}
	}
}

// TimeoutMiddleware bounds a function call. A call still running after
// timeout is abandoned and the client gets 408 TIMEOUT.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	type result struct {
		resp Response
		err  error
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan result, 1)
			go func() {
				resp, err := next(ctx, req)
				done <- result{resp, err}
			}()

			timedOut := func() (Response, error) {
				return NewErrorResponse(req.ID, CodeTimeout, "Analysis timed out",
					fmt.Sprintf("no answer within %v", timeout)), ctx.Err()
			}

			select {
			case r := <-done:
				// a function that gave up on the deadline still reads as a timeout
				if !r.resp.Success && r.resp.Error == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return timedOut()
				}
				return r.resp, r.err
			case <-ctx.Done():
				return timedOut()
			}
		}
	}
}

// RetryMiddleware re-runs a function whose failure is transient, sleeping
// with exponential backoff between attempts. Client errors are returned
// right away.
func RetryMiddleware(cfg *config.RetryConfig) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			resp, err := next(ctx, req)

			for attempt := 0; attempt < cfg.MaxAttempts && transient(resp, err); attempt++ {
				select {
				case <-ctx.Done():
					return NewErrorResponse(req.ID, CodeCancelled, "Request cancelled", ""), ctx.Err()
				case <-time.After(calculateBackoff(attempt, cfg)):
				}
				resp, err = next(ctx, req)
			}

			switch {
			case err != nil && transient(resp, err):
				return resp, fmt.Errorf("gave up after %d retries: %w", cfg.MaxAttempts, err)
			case err == nil && !resp.Success && transient(resp, nil) && resp.Error != nil:
				resp.Error.Details = fmt.Sprintf("gave up after %d retries", cfg.MaxAttempts)
			}
			return resp, err
		}
	}
}

// ValidationMiddleware stamps missing ids and rejects calls without a
// function name or with a body that is not JSON. An empty body reads as {}.
func ValidationMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			if req.ID == "" {
				req.ID = uuid.NewString()
			}
			if req.Timestamp.IsZero() {
				req.Timestamp = time.Now().UTC()
			}

			if req.Type == "" {
				return NewErrorResponse(req.ID, CodeValidation, "Unknown function", "request has no function name"), nil
			}

			if len(req.Payload) == 0 {
				req.Payload = json.RawMessage("{}")
			} else if !json.Valid(req.Payload) {
				return NewErrorResponse(req.ID, CodeInvalidPayload, "Invalid JSON body", ""), nil
			}

			return next(ctx, req)
		}
	}
}

func transient(resp Response, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if err != nil {
		return true
	}
	return !resp.Success && resp.Error != nil && (resp.Error.Retryable || isRetryableError(resp.Error.Code))
}

// calculateBackoff is InitialBackoff * Multiplier^attempt, capped at MaxBackoff.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	return time.Duration(math.Min(d, float64(cfg.MaxBackoff)))
}
