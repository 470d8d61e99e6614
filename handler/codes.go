package handler

import (
	"encoding/json"
	"net/http"
)

// Error codes carried by error responses.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeInvalidURL       = "INVALID_URL"
	CodeAnalysisFailed   = "ANALYSIS_FAILED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeNotFound         = "NOT_FOUND"
	CodeTimeout          = "TIMEOUT"
	CodeCancelled        = "CANCELLED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// isRetryableError determines if an error code represents a retryable error.
func isRetryableError(code string) bool {
	switch code {
	case CodeTimeout, CodeUnavailable, "NETWORK_ERROR", "RATE_LIMITED", "TEMPORARY_ERROR":
		return true
	}
	return false
}

// StatusCode maps a response to its HTTP status code.
func StatusCode(resp Response) int {
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error == nil {
		return http.StatusInternalServerError
	}

	switch resp.Error.Code {
	case CodeValidation, CodeInvalidPayload, CodeInvalidURL, CodeAnalysisFailed:
		return http.StatusBadRequest
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// envelope is the wire shape every function answers with.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Body renders the client-facing JSON body of a response. Raw responses
// send their data as is, without the success envelope.
func Body(resp Response, raw bool) ([]byte, error) {
	if resp.Success {
		if raw && len(resp.Data) > 0 {
			return resp.Data, nil
		}
		return json.Marshal(envelope{Success: true, Data: resp.Data})
	}

	msg := "Internal server error"
	if resp.Error != nil && resp.Error.Message != "" {
		msg = resp.Error.Message
	}
	return json.Marshal(envelope{Success: false, Error: msg})
}
