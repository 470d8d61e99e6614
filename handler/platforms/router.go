// Package platforms delivers function requests from concrete runtimes
// (a plain HTTP server, AWS Lambda behind API Gateway) to handlers.
package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"ytdlpro/handler"

	"github.com/google/uuid"
)

// Route prefixes a function is reachable under.
var routePrefixes = []string{"/api/", "/.netlify/functions/"}

// Function binds a handler to a route named after its worker.
type Function struct {
	Handler *handler.Handler

	// Methods lists the accepted HTTP methods. OPTIONS is always accepted.
	Methods []string

	// Raw sends successful data without the success envelope.
	Raw bool
}

// Router resolves paths to functions and applies the shared HTTP contract:
// CORS on every answer, preflight, method checks and status mapping.
type Router struct {
	functions map[string]Function
}

// NewRouter creates a router over fns.
func NewRouter(fns ...Function) *Router {
	r := &Router{functions: make(map[string]Function, len(fns))}
	for _, fn := range fns {
		r.functions[fn.Handler.Worker().Name()] = fn
	}
	return r
}

// Names returns the registered function names in order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns the registered functions.
func (r *Router) Functions() []Function {
	fns := make([]Function, 0, len(r.functions))
	for _, name := range r.Names() {
		fns = append(fns, r.functions[name])
	}
	return fns
}

// inbound is a runtime-neutral view of an HTTP request.
type inbound struct {
	Method    string
	Path      string
	Body      []byte
	Headers   map[string]string
	Query     map[string]string
	Source    string
	RequestID string
}

// outbound is a runtime-neutral HTTP answer.
type outbound struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// CORSHeaders are attached to every answer.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type, Authorization, X-Request-ID",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Content-Type":                 "application/json",
	}
}

func (r *Router) lookup(path string) (Function, bool) {
	path = strings.TrimRight(path, "/")
	for _, prefix := range routePrefixes {
		if name, ok := strings.CutPrefix(path, prefix); ok {
			fn, found := r.functions[name]
			return fn, found
		}
	}
	return Function{}, false
}

func (r *Router) dispatch(ctx context.Context, in inbound) outbound {
	out := outbound{Headers: CORSHeaders()}

	fn, ok := r.lookup(in.Path)
	if !ok {
		return failure(out, http.StatusNotFound, "Not found")
	}

	if in.Method == http.MethodOptions {
		out.Status = http.StatusOK
		out.Body = nil
		return out
	}

	if !allowed(fn.Methods, in.Method) {
		out.Headers["Allow"] = strings.Join(append(append([]string{}, fn.Methods...), http.MethodOptions), ", ")
		return failure(out, http.StatusMethodNotAllowed, "Method not allowed")
	}

	requestID := in.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req := handler.Request{
		ID:        requestID,
		Source:    in.Source,
		Type:      fn.Handler.Worker().Name(),
		Method:    in.Method,
		Payload:   json.RawMessage(in.Body),
		Metadata:  metadata(in),
		Timestamp: time.Now().UTC(),
	}

	resp, err := fn.Handler.Handle(ctx, req)
	if err != nil && resp.Error == nil {
		resp = handler.NewErrorResponse(requestID, handler.CodeInternal, "Internal server error", err.Error())
	}
	if resp.ID == "" {
		resp.ID = requestID
	}

	body, err := handler.Body(resp, fn.Raw)
	if err != nil {
		return failure(out, http.StatusInternalServerError, "Internal server error")
	}

	out.Status = handler.StatusCode(resp)
	out.Body = body
	out.Headers["X-Request-ID"] = resp.ID
	if traceID := resp.Metadata["trace_id"]; traceID != "" {
		out.Headers["X-Trace-ID"] = traceID
	}
	return out
}

func failure(out outbound, status int, msg string) outbound {
	body, _ := json.Marshal(map[string]interface{}{"success": false, "error": msg})
	out.Status = status
	out.Body = body
	return out
}

func allowed(methods []string, method string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// metadata carries query parameters and selected headers to the worker.
func metadata(in inbound) map[string]string {
	md := map[string]string{
		"http_method": in.Method,
		"http_path":   in.Path,
	}

	for key, value := range in.Query {
		md["query_"+key] = value
	}

	for key, value := range in.Headers {
		switch k := strings.ToLower(key); k {
		case "x-trace-id", "x-request-id", "x-amzn-trace-id", "x-nf-request-id":
			md[k] = value
		case "content-type", "user-agent", "x-forwarded-for", "host":
			md["header_"+strings.ReplaceAll(k, "-", "_")] = value
		}
	}

	return md
}
