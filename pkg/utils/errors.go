package utils

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindProvider     ErrorKind = "provider_error"
)

// AppError is a business rejection with a caller-facing reason.
type AppError struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetail attaches a structured detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func newAppError(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ErrInvalidInput(format string, args ...any) *AppError {
	return newAppError(KindInvalidInput, format, args...)
}

func ErrNotFound(format string, args ...any) *AppError {
	return newAppError(KindNotFound, format, args...)
}

func ErrConflict(format string, args ...any) *AppError {
	return newAppError(KindConflict, format, args...)
}

func ErrUnauthorized(format string, args ...any) *AppError {
	return newAppError(KindUnauthorized, format, args...)
}

func ErrForbidden(format string, args ...any) *AppError {
	return newAppError(KindForbidden, format, args...)
}

func ErrProvider(err error, format string, args ...any) *AppError {
	e := newAppError(KindProvider, format, args...)
	e.Err = err
	return e
}

// KindOf extracts the kind of an AppError anywhere in the chain.
func KindOf(err error) (ErrorKind, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
