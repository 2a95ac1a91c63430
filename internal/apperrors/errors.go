// Package apperrors provides the error taxonomy shared by the catalog
// services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation indicates missing or malformed caller input
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeUnauthorized indicates a missing, invalid or unauthorized token
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeNotFound indicates an unknown item id
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeMethodNotAllowed indicates the HTTP method is not accepted by an endpoint
	ErrorTypeMethodNotAllowed ErrorType = "METHOD_NOT_ALLOWED"

	// ErrorTypeUpstreamRejected indicates an upstream API answered with a failure status
	ErrorTypeUpstreamRejected ErrorType = "UPSTREAM_REJECTED"

	// ErrorTypeUpstreamUnavailable indicates an upstream API could not be reached
	ErrorTypeUpstreamUnavailable ErrorType = "UPSTREAM_UNAVAILABLE"

	// ErrorTypeEmbeddingFailure indicates the embedding provider failed
	ErrorTypeEmbeddingFailure ErrorType = "EMBEDDING_FAILURE"

	// ErrorTypeStorageUnavailable indicates the key-value store is unreachable or misconfigured
	ErrorTypeStorageUnavailable ErrorType = "STORAGE_UNAVAILABLE"

	// ErrorTypeInternal indicates an unclassified server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Error is a classified error carrying the failing operation
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

// Error returns a string representation of the error
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors of the same type so sentinel comparisons work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Op == "" && t.Message == "" && t.Err == nil
}

// Sentinels usable with errors.Is
var (
	ErrValidation          = &Error{Type: ErrorTypeValidation}
	ErrUnauthorized        = &Error{Type: ErrorTypeUnauthorized}
	ErrNotFound            = &Error{Type: ErrorTypeNotFound}
	ErrMethodNotAllowed    = &Error{Type: ErrorTypeMethodNotAllowed}
	ErrUpstreamRejected    = &Error{Type: ErrorTypeUpstreamRejected}
	ErrUpstreamUnavailable = &Error{Type: ErrorTypeUpstreamUnavailable}
	ErrEmbeddingFailure    = &Error{Type: ErrorTypeEmbeddingFailure}
	ErrStorageUnavailable  = &Error{Type: ErrorTypeStorageUnavailable}
	ErrInternal            = &Error{Type: ErrorTypeInternal}
)

// New creates a new classified error
func New(errType ErrorType, op, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Validation creates a validation error
func Validation(op, message string) *Error {
	return New(ErrorTypeValidation, op, message, nil)
}

// Unauthorized creates an authentication error
func Unauthorized(op, message string, err error) *Error {
	return New(ErrorTypeUnauthorized, op, message, err)
}

// NotFound creates a not-found error
func NotFound(op, message string) *Error {
	return New(ErrorTypeNotFound, op, message, nil)
}

// EmbeddingFailure wraps an embedding provider error
func EmbeddingFailure(op, message string, err error) *Error {
	return New(ErrorTypeEmbeddingFailure, op, message, err)
}

// StorageUnavailable wraps a store connectivity error
func StorageUnavailable(op string, err error) *Error {
	return New(ErrorTypeStorageUnavailable, op, "key-value store unavailable", err)
}

// TypeOf returns the error type of err, or ErrorTypeInternal when err is unclassified
func TypeOf(err error) ErrorType {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

// IsNotFound returns true if the error indicates a resource was not found
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsValidation returns true if the error indicates invalid input
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// HTTPStatus maps an error to the status code reported to callers
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeUpstreamRejected:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
