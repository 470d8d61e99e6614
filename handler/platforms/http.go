package platforms

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPAdapter serves functions from a standard HTTP server.
type HTTPAdapter struct {
	router         *Router
	maxRequestSize int64
}

// NewHTTPAdapter creates an adapter. maxRequestSize <= 0 means 1MB.
func NewHTTPAdapter(router *Router, maxRequestSize int64) *HTTPAdapter {
	if maxRequestSize <= 0 {
		maxRequestSize = 1 << 20
	}
	return &HTTPAdapter{router: router, maxRequestSize: maxRequestSize}
}

// ServeHTTP implements http.Handler.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.isHealthCheck(r.URL.Path) {
		a.handleHealth(w, r)
		return
	}

	body, err := a.readBody(w, r)
	if err != nil {
		out := failure(outbound{Headers: CORSHeaders()}, http.StatusBadRequest, "Invalid request body")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			out = failure(outbound{Headers: CORSHeaders()}, http.StatusRequestEntityTooLarge, "Request body too large")
		}
		a.write(w, out)
		return
	}

	out := a.router.dispatch(r.Context(), inbound{
		Method:    r.Method,
		Path:      r.URL.Path,
		Body:      body,
		Headers:   headerMap(r.Header),
		Query:     queryMap(r),
		Source:    "http",
		RequestID: extractRequestID(r),
	})
	a.write(w, out)
}

// isHealthCheck matches the probe paths used by container platforms.
func (a *HTTPAdapter) isHealthCheck(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/livez":
		return true
	}
	return false
}

// handleHealth checks every function's dependencies.
func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	for _, fn := range a.router.Functions() {
		if err := fn.Handler.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":   "unhealthy",
				"function": fn.Handler.Worker().Name(),
				"error":    err.Error(),
			})
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"functions": a.router.Names(),
		"time":      time.Now().UTC(),
	})
}

func (a *HTTPAdapter) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxRequestSize))
}

func (a *HTTPAdapter) write(w http.ResponseWriter, out outbound) {
	for key, value := range out.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(out.Status)
	if len(out.Body) > 0 {
		_, _ = w.Write(out.Body)
	}
}

func extractRequestID(r *http.Request) string {
	for _, header := range []string{"X-Request-ID", "X-Correlation-ID", "Request-ID"} {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}
	return ""
}

func headerMap(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for key := range h {
		m[key] = h.Get(key)
	}
	return m
}

func queryMap(r *http.Request) map[string]string {
	q := r.URL.Query()
	m := make(map[string]string, len(q))
	for key := range q {
		m[key] = q.Get(key)
	}
	return m
}
