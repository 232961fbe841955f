package domain

import "context"

// SnapshotReader loads a workflow snapshot by its progress-derived key.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, objectKey string) (*Workflow, error)
}

// SnapshotWriter persists a workflow snapshot under its current ObjectKey.
// The write is insert-only: a key that already exists means another worker
// persisted this progress state first, surfaced as a snapshot-collision.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, wf *Workflow) error
}

// SnapshotStore combines reading and writing snapshots.
type SnapshotStore interface {
	SnapshotReader
	SnapshotWriter
}

// EventPublisher appends an event to the event log. Publication is
// conditional on the idempotency key being absent; a replayed publish is a
// duplicate-event failure, not a second record.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *Event) error
}

// Invoker is the external LLM collaborator.
type Invoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
