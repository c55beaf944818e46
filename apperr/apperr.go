// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeTemporal        Code = "TEMPORAL_ERROR"
	CodeConflict        Code = "CONFLICT"
	CodePartialFailure  Code = "PARTIAL_FAILURE"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Error is a classified failure. Message is safe to show to the caller;
// Err carries the underlying cause for logging only.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(message string) *Error { return New(CodeValidation, message) }
func Unauthenticated(message string) *Error { return New(CodeUnauthenticated, message) }
func Forbidden(message string) *Error { return New(CodeForbidden, message) }
func NotFound(message string) *Error { return New(CodeNotFound, message) }
func Temporal(message string) *Error { return New(CodeTemporal, message) }
func Conflict(message string) *Error { return New(CodeConflict, message) }

func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

// PartialFailureError reports that the commit-point write of Op succeeded but
// the dependent user-side write did not. The registration state on the event
// is authoritative; the user record needs reconciliation.
type PartialFailureError struct {
	Op      string
	EventID string
	UserID  string
	// Queued is true when a repair task was handed to the reconciliation queue.
	Queued bool
	Err    error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s committed on event %s but user %s was not updated: %v", e.Op, e.EventID, e.UserID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// CodeOf classifies err. Unclassified errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return CodePartialFailure
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeTemporal, CodeConflict:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodePartialFailure:
		// the commit point is durable, so the operation is reported as done
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the caller-facing message for err. Internal errors
// never leak their cause.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != CodeInternal && ae.Message != "" {
		return ae.Message
	}
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return "Operation completed but your registration list could not be updated yet."
	}
	return "Something went wrong. Try again later."
}
