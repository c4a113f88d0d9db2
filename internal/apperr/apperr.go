// Package apperr defines the error taxonomy shared by all services.
// Handlers map kinds to HTTP statuses; services never return raw gorm or
// driver errors to callers.
package apperr

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindValidation        Kind = "VALIDATION_FAILED"
	KindUnauthenticated   Kind = "UNAUTHENTICATED"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindConflict          Kind = "CONFLICT"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
)

// Conflict reason codes: state-transition preconditions that failed.
const (
	ReasonAlreadyDecided    = "ALREADY_DECIDED"
	ReasonAlreadyRegistered = "ALREADY_REGISTERED"
	ReasonAlreadyRated      = "ALREADY_RATED"
	ReasonNotYetEligible    = "NOT_YET_ELIGIBLE"
	ReasonEventNotOpen      = "EVENT_NOT_OPEN"
	ReasonCapacityExceeded  = "CAPACITY_EXCEEDED"
	ReasonNoEligibleEvents  = "NO_ELIGIBLE_EVENTS"
	ReasonNotRatable        = "NOT_RATABLE"
	ReasonEmailTaken        = "EMAIL_ALREADY_REGISTERED"
)

type Error struct {
	Kind    Kind
	Code    string // machine-checkable reason, set for conflicts
	Message string
	Details []string // every violated constraint, for validation failures
	cause   error
}

func (e *Error) Error() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match on kind and, when set, code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func Validation(msg string, details ...string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Dependency wraps a persistence or delivery failure. The wrapped cause is
// kept for logs, never serialized to callers.
func Dependency(msg string, cause error) *Error {
	return &Error{Kind: KindDependencyFailure, Message: msg, cause: cause}
}

// KindOf reports the taxonomy kind of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
