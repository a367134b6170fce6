package httpapi

import (
	"encoding/json"
	"net/http"
)

// Standard error codes for API responses.
const (
	// ErrCodeInvalidRequest indicates a malformed request body.
	ErrCodeInvalidRequest = "invalid_request"

	// ErrCodeInvalidCredentials indicates a failed login or approval code.
	ErrCodeInvalidCredentials = "invalid_credentials"

	// ErrCodeSessionRequired indicates a missing or expired session.
	ErrCodeSessionRequired = "session_required"

	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeInvalidTransition indicates an operation not allowed in the
	// record's current lifecycle state.
	ErrCodeInvalidTransition = "invalid_transition"

	// ErrCodeInternalError indicates a server error.
	ErrCodeInternalError = "internal_error"
)

// APIError is the standard error response format.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response with the given status code, error
// code and message.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Error: code, Message: message}); err != nil {
		// Response already started, nothing we can do
		_ = err
	}
}
