package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
)

// TransportError is a network-level or non-2xx HTTP failure from the remote
// backend. Status is zero when the request never produced a response.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("durastore request %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("durastore request %s failed: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is checks, so a 404 wraps
// ErrNotFound and a 401/403 wraps ErrUnauthorized.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError indicates a response body that failed to parse as
// the expected JSON or XML shape.
type MalformedResponseError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("durastore response from %s is malformed: %v", e.URL, e.Err)
}

// Unwrap exposes the parse error.
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// APIError represents an error response from the API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}
