// Package werr defines the error kinds callers of the core can distinguish
// by errors.Is/errors.As, per the propagation policy in spec section 7.
package werr

import (
	"errors"
	"fmt"
)

// Kind is a caller-distinguishable error category.
type Kind int

const (
	// InvalidInput marks malformed ids, aliases, edge types, statuses,
	// JSON, age specs, weights, or missing required arguments.
	InvalidInput Kind = iota
	// NotFound marks a referenced node or alias that does not exist.
	NotFound
	// Conflict marks a duplicate alias, duplicate near-text on add
	// without --force, a self-block, or an immediate counter-cycle.
	Conflict
	// IntegrityWarning marks ghost edges, orphan spikes, invalid
	// statuses, or a node-count drop on load. Never fatal.
	IntegrityWarning
	// PersistenceError marks an empty dump, corrupt state.sql, an
	// inaccessible DB, or a failed integrity check.
	PersistenceError
	// ExternalToolError marks a failed issue-tracker or VCS command.
	// Always reported, never fatal for core writes.
	ExternalToolError
	// Interrupted marks a multi-step externally-coordinated op that
	// crashed between steps, surfaced by recover.
	Interrupted
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case Conflict:
		return "Conflict"
	case IntegrityWarning:
		return "IntegrityWarning"
	case PersistenceError:
		return "PersistenceError"
	case ExternalToolError:
		return "ExternalToolError"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a Kind so callers can branch on
// errors.As without parsing message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Remedy is a one-line suggestion printed alongside the error, e.g.
	// "Run wv clean-ghosts".
	Remedy string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, werr.Sentinel(werr.InvalidInput)) style
// checks: any *Error target matches when its Kind equals e's.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func WithRemedy(e *Error, remedy string) *Error {
	e.Remedy = remedy
	return e
}

// Sentinel is a zero-value *Error of a given Kind, usable as a target for
// errors.Is(err, werr.Sentinel(werr.NotFound)).
func Sentinel(kind Kind) error { return &Error{Kind: kind} }

// Has reports whether the first *Error in err's chain has the given Kind.
func Has(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
