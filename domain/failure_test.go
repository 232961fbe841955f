package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailureKindAndTransient(t *testing.T) {
	f := NewFailure(ErrDuplicateEvent, false, "already recorded")
	if KindOf(f) != ErrDuplicateEvent {
		t.Fatalf("unexpected kind: %s", KindOf(f))
	}
	if !IsKind(f, ErrDuplicateEvent) {
		t.Fatal("expected duplicate-event kind")
	}
	if IsTransient(f) {
		t.Fatal("duplicate-event must not be transient")
	}
}

func TestFailureWrappedIsStillClassified(t *testing.T) {
	inner := WrapFailure(ErrSnapshotCollision, false, errors.New("409"), "snapshot exists")
	outer := fmt.Errorf("save workflow: %w", inner)
	if !IsKind(outer, ErrSnapshotCollision) {
		t.Fatal("expected collision kind through wrapping")
	}
	if IsTransient(outer) {
		t.Fatal("collision must not be transient")
	}
	if errors.Unwrap(inner) == nil || errors.Unwrap(inner).Error() != "409" {
		t.Fatal("unwrap must expose the cause")
	}
}

func TestUnclassifiedErrorsDefaultToTransient(t *testing.T) {
	plain := errors.New("connection reset")
	if !IsTransient(plain) {
		t.Fatal("unknown errors must default to transient")
	}
	if KindOf(plain) != ErrUnrecognized {
		t.Fatalf("unexpected kind: %s", KindOf(plain))
	}
}

func TestNilErrorIsNeitherKindNorTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Fatal("nil error must not be transient")
	}
	if KindOf(nil) != "" {
		t.Fatalf("unexpected kind for nil: %s", KindOf(nil))
	}
	if IsKind(nil, ErrUnrecognized) {
		t.Fatal("nil error has no kind")
	}
}
