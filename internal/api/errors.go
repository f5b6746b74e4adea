// Package api provides the local HTTP control surface that UI shells
// (map webview, CLI) drive the engine through.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes returned by the control surface.
const (
	ErrCodeValidation   = "validation_error"
	ErrCodeAuthRequired = "auth_required"
	ErrCodeNotFound     = "not_found"
	ErrCodeDuplicate    = "duplicate"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeRemote       = "remote_error"
	ErrCodeLocal        = "local_error"
	ErrCodeInternal     = "internal_error"
)

// ErrorResponse is the standard error body:
// {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string, details ...string) {
	resp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

// WriteJSON writes a JSON success response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
