package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the HTTP boundary.
type ErrorKind string

const (
	KindUnauthenticated ErrorKind = "UNAUTHORIZED"
	KindForbidden       ErrorKind = "FORBIDDEN"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindValidation      ErrorKind = "VALIDATION_FAILED"
	KindUnavailable     ErrorKind = "SERVICE_UNAVAILABLE"
	KindStorage         ErrorKind = "INTERNAL_ERROR"
)

// Error is a classified domain error. Message is safe to show to callers;
// Err holds the underlying cause and is only logged.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any error of the same kind against a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
	ErrStorage         = &Error{Kind: KindStorage}
)

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound builds a not-found error for the named resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Unavailable marks a retryable storage failure such as a timeout.
func Unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "storage temporarily unavailable", Err: err}
}

// StorageFailure wraps an unexpected storage error.
func StorageFailure(err error) *Error {
	return &Error{Kind: KindStorage, Message: "internal server error", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindStorage.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}
