// Package shared centralizes JSON response envelopes so every handler
// serializes success and failure the same way.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "daycareplanner/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope. Message is always user-safe;
// wrapped causes stay in logs.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON serializes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the HTTP envelope. Unclassified
// errors become opaque 500s.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Error:   string(code),
		Message: dErrors.MessageOf(err),
	})
}
