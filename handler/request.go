package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request is one function invocation, whatever platform delivered it.
//
// Type names the function. Metadata carries the http_method and http_path
// of the call, query parameters as query_<name>, trace headers under their
// lowercased name and a few other headers as header_<name>.
type Request struct {
	ID        string            `json:"id"`
	Source    string            `json:"source"`
	Type      string            `json:"type"`
	Method    string            `json:"method,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Response is what a function returns. Data is set on success and Error on
// failure; platform adapters turn both into the {success, data|error} body.
type Response struct {
	ID          string            `json:"id"`
	Success     bool              `json:"success"`
	Data        json.RawMessage   `json:"data,omitempty"`
	Error       *ErrorResponse    `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
	Duration    time.Duration     `json:"duration,omitempty"`
}

// ErrorResponse describes a failed invocation. Message is shown to the
// client as is; Code selects the HTTP status (see StatusCode).
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewRequest builds a request for function fn with payload encoded as JSON.
func NewRequest(fn string, payload interface{}) (Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:        uuid.NewString(),
		Type:      fn,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Unmarshal decodes the request body into v.
func (r *Request) Unmarshal(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

func (r *Request) SetMetadata(key, value string) {
	r.Metadata = setKey(r.Metadata, key, value)
}

func (r *Request) GetMetadata(key string) (string, bool) {
	v, ok := r.Metadata[key]
	return v, ok
}

// Marshal sets v as the response data.
func (r *Response) Marshal(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Data = data
	return nil
}

func (r *Response) SetMetadata(key, value string) {
	r.Metadata = setKey(r.Metadata, key, value)
}

func setKey(m map[string]string, key, value string) map[string]string {
	if m == nil {
		m = make(map[string]string, 1)
	}
	m[key] = value
	return m
}

// NewErrorResponse builds a failed response. Retryable follows from code.
func NewErrorResponse(id, code, message, details string) Response {
	return Response{
		ID: id,
		Error: &ErrorResponse{
			Code:      code,
			Message:   message,
			Details:   details,
			Retryable: isRetryableError(code),
		},
		ProcessedAt: time.Now().UTC(),
	}
}

// NewSuccessResponse builds a successful response carrying data, which may
// be nil.
func NewSuccessResponse(id string, data interface{}) (Response, error) {
	resp := Response{ID: id, Success: true, ProcessedAt: time.Now().UTC()}
	if data == nil {
		return resp, nil
	}
	if err := resp.Marshal(data); err != nil {
		return Response{}, err
	}
	return resp, nil
}
