package handler

import (
	"context"
)

// Worker is one serverless function: the business logic behind a route,
// independent of the platform that delivers the request.
type Worker interface {
	// Name identifies the function in logs, metrics and routing.
	Name() string

	// Process handles one request. Client errors are reported through an
	// error Response; a returned error means the function itself failed.
	Process(ctx context.Context, request Request) (Response, error)

	// Health reports whether the function's dependencies are usable.
	Health(ctx context.Context) error
}
