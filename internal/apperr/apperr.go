// Package apperr defines the error taxonomy shared by the scheduling core
// and the HTTP layer. Every business failure carries a Kind (for transport
// mapping) and a stable machine-readable Code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport-level mapping
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindCapacityExceeded       Kind = "capacity_exceeded"
	KindValidation             Kind = "validation_error"
	KindDuplicateApplication   Kind = "duplicate_application"
	KindDeadlinePassed         Kind = "deadline_passed"
	KindForbidden              Kind = "forbidden"
	KindConflict               Kind = "conflict"
)

// Error is a classified business error
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches errors by kind, and by code when the target carries one
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// New creates an error with an explicit kind
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Newf creates an error with a formatted message
func Newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// InvalidState reports an operation applied in a state that does not allow it
func InvalidState(code, message string) *Error {
	return New(KindInvalidStateTransition, code, message)
}

// CapacityExceeded reports a full shift
func CapacityExceeded(code, message string) *Error {
	return New(KindCapacityExceeded, code, message)
}

// Validation reports malformed or out-of-range input
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// DuplicateApplication reports a second active application for the same shift
func DuplicateApplication(code, message string) *Error {
	return New(KindDuplicateApplication, code, message)
}

// DeadlinePassed reports an application after the shift's deadline
func DeadlinePassed(code, message string) *Error {
	return New(KindDeadlinePassed, code, message)
}

// Forbidden reports an actor without the role the operation requires
func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

// Conflict reports a transactional conflict that exhausted its retries
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// KindOf returns the kind of err, or "" when err is not an apperr error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the machine-readable code of err, or "" when unclassified
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKind reports whether err is an apperr error of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
