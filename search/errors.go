package search

import "errors"

// ErrorType represents the category of a search error.
type ErrorType string

const (
	// ErrorTypeUnavailable means both backend families failed after retries.
	ErrorTypeUnavailable ErrorType = "search_unavailable"
	// ErrorTypeTimeout means the query-level deadline was exceeded.
	ErrorTypeTimeout ErrorType = "search_timeout"
	// ErrorTypeInvalidQuery means the request was rejected before any remote call.
	ErrorTypeInvalidQuery ErrorType = "invalid_query"
)

// Error is the caller-visible search error.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	// Retryable reports whether repeating the identical request later may
	// succeed. Invalid requests never are.
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a SearchUnavailable error.
func NewUnavailableError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeUnavailable, Message: message, Cause: cause, Retryable: true}
}

// NewTimeoutError creates a SearchTimeout error.
func NewTimeoutError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: message, Cause: cause, Retryable: true}
}

// NewInvalidQueryError creates an InvalidQuery error.
func NewInvalidQueryError(message string) *Error {
	return &Error{Type: ErrorTypeInvalidQuery, Message: message}
}

// IsRetryable checks whether repeating the request may succeed.
func IsRetryable(err error) bool {
	var searchErr *Error
	if errors.As(err, &searchErr) {
		return searchErr.Retryable
	}
	return false
}

// IsUnavailable checks whether err is a SearchUnavailable error.
func IsUnavailable(err error) bool {
	return errorTypeOf(err) == ErrorTypeUnavailable
}

// IsTimeout checks whether err is a SearchTimeout error.
func IsTimeout(err error) bool {
	return errorTypeOf(err) == ErrorTypeTimeout
}

// IsInvalidQuery checks whether err is an InvalidQuery error.
func IsInvalidQuery(err error) bool {
	return errorTypeOf(err) == ErrorTypeInvalidQuery
}

func errorTypeOf(err error) ErrorType {
	var searchErr *Error
	if errors.As(err, &searchErr) {
		return searchErr.Type
	}
	return ""
}
