package kcadmin

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested resource does not exist
	// in the realm (user, role, credential).
	ErrNotFound = errors.New("kcadmin: not found")

	// ErrConflict is returned when a create collides with an existing
	// resource, e.g. a user with the same email address.
	ErrConflict = errors.New("kcadmin: conflict")

	// ErrTokenRequest is returned when the admin client cannot obtain an
	// access token from the identity provider.
	ErrTokenRequest = errors.New("kcadmin: token request failed")
)

// APIError represents a non-2xx response from the admin REST API.
// It wraps ErrNotFound / ErrConflict for the common status codes so
// callers can match with errors.Is.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("kcadmin: admin API returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes onto sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	}
	return nil
}
