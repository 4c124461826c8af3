// Package apperr defines the error taxonomy shared by the sync engine,
// the allocation engine and the sale orchestrator. Failure handling is
// driven by the Kind discriminant, never by message text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry and surfacing decisions.
type Kind string

const (
	// KindValidation marks a malformed payload or missing identity
	// parameter. Never retried, surfaced immediately.
	KindValidation Kind = "validation"

	// KindConflict marks a concurrency-token mismatch on a remote write.
	KindConflict Kind = "conflict"

	// KindTransient marks a network, timeout or server failure. Retried
	// up to the operation's retry budget.
	KindTransient Kind = "transient"

	// KindInsufficientStock marks a stock shortfall. Aborts before any
	// mutation, never retried.
	KindInsufficientStock Kind = "insufficient_stock"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under a kind.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Transient wraps err as a transient failure.
func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// InsufficientStock creates a stock-shortfall error.
func InsufficientStock(message string) *Error {
	return New(KindInsufficientStock, message)
}

// KindOf returns the kind of err. Errors that carry no classification are
// treated as transient: a failure we cannot classify is retryable, not fatal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
