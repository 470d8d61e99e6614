package domain

import (
	"errors"
	"fmt"
)

// Error codes. They double as the machine-readable codes of API responses.
const (
	CodeInvalidURL        = "INVALID_URL"
	CodeServerUnreachable = "SERVER_UNREACHABLE"
	CodeRemoteError       = "REMOTE_ERROR"
	CodeAnalysisError     = "ANALYSIS_ERROR"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeTimeout           = "TIMEOUT"
	CodeCancelRejected    = "CANCEL_REJECTED"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code       string
	Message    string
	StatusCode int // HTTP status for REMOTE_ERROR, zero otherwise
	Err        error
	Retryable  bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so callers can write
// errors.Is(err, domain.ErrTimeout).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error, retryable bool) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// Sentinels for errors.Is.
var (
	ErrInvalidURL = &DomainError{
		Code:    CodeInvalidURL,
		Message: "URL is not a supported YouTube page",
	}
	ErrServerUnreachable = &DomainError{
		Code:      CodeServerUnreachable,
		Message:   "download server is not reachable",
		Retryable: true,
	}
	ErrRemote = &DomainError{
		Code:    CodeRemoteError,
		Message: "server returned an error status",
	}
	ErrAnalysis = &DomainError{
		Code:    CodeAnalysisError,
		Message: "server could not analyze the URL",
	}
	ErrJobNotFound = &DomainError{
		Code:    CodeJobNotFound,
		Message: "job not found",
	}
	ErrTimeout = &DomainError{
		Code:      CodeTimeout,
		Message:   "request timed out",
		Retryable: true,
	}
	ErrCancelRejected = &DomainError{
		Code:    CodeCancelRejected,
		Message: "server declined to cancel the job",
	}
)

// InvalidURL reports that raw cannot start a job.
func InvalidURL(raw string) error {
	return &DomainError{Code: CodeInvalidURL, Message: fmt.Sprintf("not a supported YouTube URL: %q", raw)}
}

// ServerUnreachable wraps the failure of a reachability probe.
func ServerUnreachable(detail string, err error) error {
	return &DomainError{Code: CodeServerUnreachable, Message: detail, Err: err, Retryable: true}
}

// RemoteError reports a non-2xx answer.
func RemoteError(statusCode int, message string) error {
	if message == "" {
		message = fmt.Sprintf("server answered with status %d", statusCode)
	}
	return &DomainError{
		Code:       CodeRemoteError,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// AnalysisError reports a 2xx answer whose body declared failure.
func AnalysisError(message string) error {
	if message == "" {
		message = "analysis failed"
	}
	return &DomainError{Code: CodeAnalysisError, Message: message}
}

// JobNotFound reports an id the tracker or the server does not know.
func JobNotFound(id string) error {
	return &DomainError{Code: CodeJobNotFound, Message: fmt.Sprintf("job %q not found", id)}
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(operation string, err error) error {
	return &DomainError{
		Code:      CodeTimeout,
		Message:   fmt.Sprintf("%s timed out", operation),
		Err:       err,
		Retryable: true,
	}
}

// CancelRejected reports a cancel the server answered with cancelled=false.
func CancelRejected(id string) error {
	return &DomainError{Code: CodeCancelRejected, Message: fmt.Sprintf("server declined to cancel job %q", id)}
}

// StatusCodeOf returns the HTTP status carried by a REMOTE_ERROR, or zero.
func StatusCodeOf(err error) int {
	var de *DomainError
	if errors.As(err, &de) {
		return de.StatusCode
	}
	return 0
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
