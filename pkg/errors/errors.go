package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed failure with HTTP awareness. It is the only error
// shape that crosses package boundaries in the curriculum core.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	RemoteCode string `json:"remote_code,omitempty"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their sentinel.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Error kinds surfaced to the UI layer.
const (
	KindValidation    = "VALIDATION_ERROR"
	KindNotFound      = "NOT_FOUND"
	KindConflict      = "CONFLICT"
	KindRemoteFailure = "REMOTE_FAILURE"
	KindStaleResponse = "STALE_RESPONSE"
	KindCacheMiss     = "CACHE_MISS"
	KindInternal      = "INTERNAL_ERROR"
)

// Predefined errors for common scenarios.
var (
	ErrValidation    = New(KindValidation, http.StatusBadRequest, "validation failed")
	ErrNotFound      = New(KindNotFound, http.StatusNotFound, "resource not found")
	ErrConflict      = New(KindConflict, http.StatusConflict, "conflict")
	ErrRemoteFailure = New(KindRemoteFailure, http.StatusBadGateway, "remote request failed")
	ErrStaleResponse = New(KindStaleResponse, http.StatusConflict, "response no longer relevant")
	ErrCacheMiss     = New(KindCacheMiss, http.StatusNotFound, "cache miss")
	ErrInternal      = New(KindInternal, http.StatusInternalServerError, "internal server error")
)

// NewRemoteFailure builds a RemoteFailure carrying the executor's message and code verbatim.
func NewRemoteFailure(message, remoteCode string, status int) *Error {
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	if message == "" {
		message = ErrRemoteFailure.Message
	}
	return &Error{Code: KindRemoteFailure, Status: status, Message: message, RemoteCode: remoteCode}
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Kind returns the error code for err, or an empty string for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}

// Clone returns a copy of the error allowing for message overrides.
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
