// Package apperrors provides the typed failures returned by the service layer.
//
// Every domain failure carries a Kind (machine readable) and a human-readable
// message. Controllers map the Kind to an HTTP status; the message is safe to
// show to the user.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind is a machine-readable error class.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindForbidden  Kind = "FORBIDDEN"
	KindBadRequest Kind = "BAD_REQUEST"
	KindConflict   Kind = "CONFLICT"
	KindInternal   Kind = "INTERNAL"
)

// Error is a domain error with an optional offending field.
type Error struct {
	Kind    Kind
	Message string
	// Field names the input field a validation failure belongs to.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperrors.ErrForbidden) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrBadRequest = &Error{Kind: KindBadRequest}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrInternal   = &Error{Kind: KindInternal}
)

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Invalid is a BadRequest bound to a specific input field.
func Invalid(field, message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message, Field: field}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Internal wraps an unexpected failure (store, transport). The cause is kept
// for logging but never shown to the user.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
