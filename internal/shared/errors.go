// internal/shared/errors.go
package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a coded domain error. The code decides how callers (and the HTTP
// layer) classify a failure; the message is for humans.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches two coded errors by code, so sentinel comparisons with
// errors.Is work for wrapped and re-created errors alike.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a coded error with a formatted message.
func Errorf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinel errors covering every failure class the services surface.
// InsufficientAvailable carries its own code but is a precondition failure
// for classification purposes.
var (
	ErrNotFound              = NewError("NOT_FOUND", "resource not found")
	ErrInvalidArgument       = NewError("INVALID_ARGUMENT", "invalid argument")
	ErrPreconditionFailed    = NewError("PRECONDITION_FAILED", "operation not allowed in current state")
	ErrInsufficientAvailable = NewError("INSUFFICIENT_AVAILABLE", "not enough available copies")
	ErrForbidden             = NewError("FORBIDDEN", "access to this resource is forbidden")
	ErrTransient             = NewError("TRANSIENT", "operation could not complete, safe to retry")
)

// Retryable reports whether the caller may retry the same request unchanged.
// Only transient failures qualify; everything else needs corrected input.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// HTTPStatus maps a coded error to its response status. Unrecognized errors
// map to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_ARGUMENT":
		return http.StatusBadRequest
	case "PRECONDITION_FAILED", "INSUFFICIENT_AVAILABLE":
		return http.StatusConflict
	case "FORBIDDEN":
		return http.StatusForbidden
	case "TRANSIENT":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
