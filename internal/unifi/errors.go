package unifi

import (
	"errors"
	"fmt"
)

// Sentinel errors for common controller error cases.
var (
	// ErrUnauthorized is returned when the controller rejects the session,
	// after one re-login attempt has already been made.
	ErrUnauthorized = errors.New("unifi: unauthorized (session rejected by controller)")

	// ErrDeviceNotFound is returned when a device lookup by MAC finds no
	// matching entry in the controller's device list.
	ErrDeviceNotFound = errors.New("unifi: device not found")
)

// APIError represents a non-2xx response from the controller.
type APIError struct {
	StatusCode int
	Endpoint   string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("unifi: %s failed (status %d)", e.Endpoint, e.StatusCode)
}
