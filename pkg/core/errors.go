// Package core provides the main FarmSight client, configuration, and
// shared domain types.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrAssistantOperation indicates that an assistant operation failed.
	ErrAssistantOperation = errors.New("assistant operation failed")
)

// ClientError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &ClientError{
//	    Op:  "ListFields",
//	    Err: ErrNotFound,
//	}
//	// Error() returns: "farmsight: ListFields: resource not found"
type ClientError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "farmsight: <Op>: <Err>"
func (e *ClientError) Error() string {
	return fmt.Sprintf("farmsight: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with ClientError.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a new ClientError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewClientError("ListFields", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "Login", "ListFields", "Archive")
//   - err: The underlying error to wrap
//
// Returns a ClientError, or nil if err is nil.
func NewClientError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClientError{
		Op:  op,
		Err: err,
	}
}
