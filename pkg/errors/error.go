// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid configuration, flags or versions
//   - Stream errors (200-299): Connection, subscription and message parsing errors
//   - Persistence errors (300-399): Artifact writing and reading errors
//   - Aggregation errors (400-499): Combining client results
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidConfiguration, "window must be positive")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeConnectionFailed, "failed to dial %s", endpoint)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodePersistenceFailed, "failed to write artifact", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeConnectionFailed) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// ClientError attributes a failure to one sampling client.
type ClientError struct {
	ClientID int   // Client that failed
	Cause    error // Underlying failure
}

// NewClientError creates a new ClientError.
func NewClientError(clientID int, cause error) *ClientError {
	return &ClientError{
		ClientID: clientID,
		Cause:    cause,
	}
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	return fmt.Sprintf("client %d: %v", e.ClientID, e.Cause)
}

// Unwrap returns the underlying error cause.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// IsClientError checks if an error is a ClientError.
// It uses errors.As to check the error chain.
func IsClientError(err error) bool {
	var clientErr *ClientError

	return errors.As(err, &clientErr)
}
