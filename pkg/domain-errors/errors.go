// Package domainerrors provides coded errors for the admissions domain.
//
// Services return these so transports can translate them uniformly; stores
// return sentinel errors (pkg/platform/sentinel) which services wrap into
// coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and transports.
type Code string

const (
	// CodeInvalidInput marks malformed or missing request data.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a reference to a record that does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition marks a lifecycle transition the current state
	// does not permit. The record is left untouched.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeUnauthorized marks a caller whose role does not permit the operation.
	CodeUnauthorized Code = "unauthorized"
	// CodeConflict marks a uniqueness or concurrent-modification conflict.
	CodeConflict Code = "conflict"
	// CodeUnavailable marks a transient infrastructure failure; the caller
	// may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Message is safe to surface to callers.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code on err, or CodeInternal when err carries
// no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-facing message on err, or a generic fallback.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to the HTTP status transports should respond with.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
