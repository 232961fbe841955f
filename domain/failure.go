package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies a failure. The set is open: storage and upstream
// layers may introduce new kinds, but each operation documents the kinds
// it can return.
type ErrKind string

const (
	ErrInvalidArguments     ErrKind = "invalid-arguments"
	ErrDuplicateEvent       ErrKind = "duplicate-event"
	ErrSnapshotCollision    ErrKind = "snapshot-collision"
	ErrSnapshotNotFound     ErrKind = "snapshot-not-found"
	ErrSnapshotCorrupted    ErrKind = "snapshot-corrupted"
	ErrWorkflowCompleted    ErrKind = "workflow-already-completed"
	ErrWorkflowInvalidState ErrKind = "workflow-invalid-state"
	ErrUpstreamTransient    ErrKind = "upstream-transient"
	ErrUpstreamPermanent    ErrKind = "upstream-permanent"
	ErrUnrecognized         ErrKind = "unrecognized"
)

// Failure is the error type carried through every fallible operation.
// Transient tells the queue layer whether redelivery can help.
type Failure struct {
	Kind      ErrKind
	Transient bool
	Cause     error
	Msg       string
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

func (f *Failure) Unwrap() error { return f.Cause }

// NewFailure creates a Failure without an underlying cause.
func NewFailure(kind ErrKind, transient bool, msg string) *Failure {
	return &Failure{Kind: kind, Transient: transient, Msg: msg}
}

// WrapFailure creates a Failure wrapping a lower-level error.
func WrapFailure(kind ErrKind, transient bool, cause error, msg string) *Failure {
	return &Failure{Kind: kind, Transient: transient, Cause: cause, Msg: msg}
}

// KindOf returns the kind of err, or ErrUnrecognized when err carries no
// Failure in its chain. KindOf(nil) returns the empty kind.
func KindOf(err error) ErrKind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ErrUnrecognized
}

// IsKind reports whether err carries a Failure of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == kind
}

// IsTransient reports whether retrying the operation that produced err may
// succeed. Unclassified errors are treated as transient: retry is the safe
// default for unknown failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Transient
	}
	return true
}
