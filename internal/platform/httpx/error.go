package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxCodeLen    = 80
	maxMessageLen = 512
)

// Error is the JSON error body every handler writes. The fixed fields are
// error, message, status and request_id; detail entries added with
// WithDetail are flattened next to them and never shadow a fixed key.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string

	details map[string]any
}

// NewError builds an envelope with the given code, message and HTTP status.
// Text fields are scrubbed of control characters and clipped before they
// reach the wire.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, maxCodeLen),
		Message: sanitize(message, maxMessageLen),
		Status:  status,
	}
}

// WithRequestID overrides the request id otherwise taken from the context.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = sanitize(id, maxCodeLen)
	return e
}

// WithDetail adds one payload entry alongside the fixed fields.
func (e Error) WithDetail(key string, value any) Error {
	details := make(map[string]any, len(e.details)+1)
	for k, v := range e.details {
		details[k] = v
	}
	details[key] = value
	e.details = details
	return e
}

// WriteError renders the envelope as JSON on w.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	payload := make(map[string]any, len(err.details)+4)
	for k, v := range err.details {
		payload[k] = v
	}
	payload["error"] = err.Code
	payload["message"] = err.Message
	payload["status"] = status

	requestID := err.RequestID
	if requestID == "" {
		requestID = sanitize(middleware.GetReqID(ctx), maxCodeLen)
	}
	if requestID != "" {
		payload["request_id"] = requestID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value)
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
