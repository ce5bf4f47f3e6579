// Package envelope writes the uniform JSON response wrapper used by every
// endpoint.
package envelope

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/logging"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope. Stack is only populated outside production.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Stack      string `json:"stack,omitempty"`
}

// Writer renders envelopes. IncludeStack controls whether failure responses
// carry the captured stack trace.
type Writer struct {
	IncludeStack bool
}

// Success writes data wrapped in a success envelope. A nil payload is rendered
// as an empty object.
func (Writer) Success(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	if data == nil {
		data = struct{}{}
	}
	write(ctx, w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Failure classifies err and writes a failure envelope.
func (wr Writer) Failure(ctx context.Context, w http.ResponseWriter, err error) {
	classified := apperr.From(err)
	status := classified.Kind.Status()

	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "kind", classified.Kind.String(), "error", classified)
	} else {
		logger.Warn("request returned client error", "status", status, "kind", classified.Kind.String(), "message", classified.Message)
	}

	body := ErrorResponse{
		StatusCode: status,
		Message:    classified.Message,
		Success:    false,
	}
	if wr.IncludeStack {
		body.Stack = string(classified.Stack)
	}
	write(ctx, w, status, body)
}

func write(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
