// Package apperr classifies failures so that event consumers can decide
// between retrying a delivery and resolving it terminally.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindTransient covers infrastructure failures (storage, transport)
	// that are expected to succeed on a later attempt.
	KindTransient Kind = iota
	// KindValidation marks malformed input, rejected before the saga starts.
	KindValidation
	// KindNotFound marks a referenced aggregate missing on event arrival.
	KindNotFound
	// KindConflict marks a duplicate that was resolved by returning the
	// existing entity. It is never surfaced to callers as a failure.
	KindConflict
	// KindExternal marks a business failure of the external billing
	// collaborator. It resolves into a terminal Failed state, never a retry.
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	default:
		return "transient"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func External(message string, err error) *Error {
	return &Error{Kind: KindExternal, Message: message, Err: err}
}

func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// KindOf reports the classification of err. Unclassified errors count as
// transient, so unknown infrastructure failures get retried rather than
// dropped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
