// Package faults defines the error taxonomy shared by the judging engine.
//
// Every error returned across a package boundary carries one kind sentinel
// (ErrNotFound, ErrForbidden, ErrConflict, ErrValidation, ErrDependency) so
// callers can branch with errors.Is without knowing the concrete cause.
package faults

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrDependency = errors.New("dependency unavailable")
)

// Specific conditions. Each one wraps its kind.
var (
	ErrNoJudgesAssigned             = fmt.Errorf("%w: no active judges assigned to event", ErrValidation)
	ErrNoSubmissions                = fmt.Errorf("%w: event has no submissions", ErrValidation)
	ErrNotAssignedOrAlreadyReviewed = fmt.Errorf("%w: submission not assigned to judge or already reviewed", ErrConflict)
)

var kinds = []error{ErrNotFound, ErrForbidden, ErrConflict, ErrValidation, ErrDependency}

// Error is an operation-scoped error carrying a kind and an optional cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil || errors.Is(e.Err, e.Kind):
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap attaches op to err, keeping whatever kind err already carries.
// Errors without a kind are treated as dependency failures.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) == nil {
		return &Error{Op: op, Kind: ErrDependency, Err: err}
	}
	return &Error{Op: op, Err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Validation builds a validation error with a formatted message.
func Validation(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound builds a not-found error naming the missing entity.
func NotFound(op, entity, id string) error {
	return &Error{Op: op, Kind: ErrNotFound, Err: fmt.Errorf("%s %q not found", entity, id)}
}

// Dependency marks err as an underlying store failure.
func Dependency(op string, err error) error {
	return WrapKind(op, ErrDependency, err)
}

// KindOf returns the kind sentinel carried by err, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoJudgesAssigned):
		return "no_judges_assigned"
	case errors.Is(err, ErrNoSubmissions):
		return "no_submissions"
	case errors.Is(err, ErrNotAssignedOrAlreadyReviewed):
		return "not_assigned_or_already_reviewed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDependency):
		return "dependency"
	default:
		return "internal_error"
	}
}

// Retryable reports whether the caller may retry the operation.
// Only dependency failures are retryable; every other kind is terminal.
func Retryable(err error) bool {
	return errors.Is(err, ErrDependency)
}
