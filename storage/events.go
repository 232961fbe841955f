package storage

import (
	"context"

	"github.com/bytedance/sonic"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

type eventEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Data         string `json:"Data"`
	CreatedAt    string `json:"CreatedAt"`
}

const eventPartitionPrefix = "evt:"

// PublishEvent appends the event to the log with an insert-only write keyed
// by (event-name namespace, idempotency key). A key that already exists is
// a duplicate-event failure: the event was durably recorded by an earlier
// delivery and must not be written again. Any other storage failure is
// unrecognized and transient.
func (s *Storage) PublishEvent(ctx context.Context, ev *domain.Event) error {
	if ev == nil || len(ev.Data) == 0 || ev.Name == "" || ev.IdempotencyKey == "" {
		return domain.NewFailure(domain.ErrInvalidArguments, false, "event is not publishable")
	}
	ent := eventEntity{
		PartitionKey: eventPartitionPrefix + sanitizeTableKey(ev.Name),
		RowKey:       sanitizeTableKey(ev.IdempotencyKey),
		Data:         string(ev.Data),
		CreatedAt:    ev.CreatedAt,
	}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return domain.WrapFailure(domain.ErrInvalidArguments, false, err, "encode event entity")
	}
	if _, err := s.eventsTable.AddEntity(ctx, payload, nil); err != nil {
		if isConflict(err) {
			return domain.WrapFailure(domain.ErrDuplicateEvent, false, err, "event "+ev.IdempotencyKey+" already recorded")
		}
		return domain.WrapFailure(domain.ErrUnrecognized, true, err, "append event")
	}
	return nil
}

// EnqueueEvent forwards the event to the events queue wrapped in a
// change-record envelope, standing in for the event log's change feed.
func (s *Storage) EnqueueEvent(ctx context.Context, ev *domain.Event) error {
	if ev == nil {
		return domain.NewFailure(domain.ErrInvalidArguments, false, "event is required")
	}
	rec := domain.ChangeRecord{
		ChangeType: "insert",
		After: &domain.EventRecord{
			EventName:      ev.Name,
			EventData:      ev.Data,
			IdempotencyKey: ev.IdempotencyKey,
			CreatedAt:      ev.CreatedAt,
		},
	}
	payload, err := sonic.Marshal(rec)
	if err != nil {
		return domain.WrapFailure(domain.ErrInvalidArguments, false, err, "encode change record")
	}
	if _, err := s.queue.EnqueueMessage(ctx, string(payload), nil); err != nil {
		return domain.WrapFailure(domain.ErrUnrecognized, true, err, "enqueue event")
	}
	return nil
}
