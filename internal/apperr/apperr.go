// Package apperr defines the typed error kinds shared by every core
// component, replacing the exception-driven control flow of the original
// implementation with explicit, pattern-matchable values (spec §7, §9).
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the terminal error classifications a component may
// surface to a caller. Transient failures are retried internally (see
// internal/retry); a Transient value that reaches a caller means those
// retries were exhausted or the failing call was not retried.
type Kind string

const (
	// NotFound means the requested remote entity is absent. Treated as
	// data, not an error: callers log at debug level and continue.
	NotFound Kind = "not_found"
	// AuthError means credentials were rejected. Disables the connector
	// and is never retried.
	AuthError Kind = "auth_error"
	// Transient means a network or 5xx failure that retry.Do already
	// exhausted its attempts on.
	Transient Kind = "transient"
	// Conflict means local and remote IDs disagree for the same key.
	Conflict Kind = "conflict"
	// InvalidRecipe means card-type validation rejected a Recipe.
	InvalidRecipe Kind = "invalid_recipe"
	// ResourceExceeded means a filesize limit could not be met even
	// after compression.
	ResourceExceeded Kind = "resource_exceeded"
	// Cancelled means cooperative cancellation was observed mid-job.
	Cancelled Kind = "cancelled"
)

// Error is the single typed error value every core component returns.
// Op identifies the failing operation (e.g. "plex.GetLibraries") for log
// context; Err carries the underlying cause where one exists.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error for op/kind, wrapping err (which may be nil).
func New(op string, kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is an *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
