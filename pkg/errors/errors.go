package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an API-facing failure. Code is the stable machine-readable identifier,
// Status the HTTP status it maps to. Err keeps the cause for logs and is never serialised.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New declares a sentinel.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an error with an explicit code and status around cause.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

// WrapAs wraps cause under the code and status of kind.
func WrapAs(cause error, kind *Error, message string) *Error {
	return Wrap(cause, kind.Code, kind.Status, message)
}

// Sentinels shared by every billing operation. INVALID_STATE is a lifecycle
// violation, OUT_OF_RANGE a date outside the course window, INVALID_INPUT a
// request that passes field validation but breaks a business rule.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrInvalidState = New("INVALID_STATE", http.StatusConflict, "operation not allowed in current state")
	ErrOutOfRange   = New("OUT_OF_RANGE", http.StatusUnprocessableEntity, "value outside allowed range")
	ErrInvalidInput = New("INVALID_INPUT", http.StatusBadRequest, "invalid input")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss never reaches clients; the cache layer falls through to Postgres.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Is reports whether err carries the same code as target anywhere in its chain.
func Is(err error, target *Error) bool {
	var e *Error
	if target == nil || !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}

// FromError returns the typed error in err's chain. Anything untyped becomes
// INTERNAL_ERROR with a generic message so driver details stay out of responses.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapAs(err, ErrInternal, ErrInternal.Message)
}

// Clone copies a sentinel, replacing its message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
