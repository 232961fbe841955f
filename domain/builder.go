package domain

import (
	"github.com/bytedance/sonic"
)

// ChangeRecord is the change-feed envelope delivered on the events queue.
// It carries before/after images of a single event-log row; only the after
// image is used to rebuild the event.
type ChangeRecord struct {
	ChangeType string       `json:"changeType"`
	Before     *EventRecord `json:"before,omitempty"`
	After      *EventRecord `json:"after"`
}

// EventRecord is the flat row image of a stored event.
type EventRecord struct {
	EventName      string                 `json:"eventName"`
	EventData      sonic.NoCopyRawMessage `json:"eventData"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	CreatedAt      string                 `json:"createdAt"`
}

// EventFromChangeRecord decodes a raw change record and reconstitutes the
// domain event it carries. Unknown event names and malformed records are
// invalid-arguments failures; failures from the event type's Reconstitute
// are passed through unchanged.
func EventFromChangeRecord(types map[string]EventType, raw []byte) (*Event, error) {
	if len(raw) == 0 {
		return nil, NewFailure(ErrInvalidArguments, false, "change record is empty")
	}
	var rec ChangeRecord
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return nil, WrapFailure(ErrInvalidArguments, false, err, "malformed change record")
	}
	if rec.After == nil {
		return nil, NewFailure(ErrInvalidArguments, false, "change record has no after image")
	}
	et, ok := types[rec.After.EventName]
	if !ok {
		return nil, NewFailure(ErrInvalidArguments, false, "unknown event name "+rec.After.EventName)
	}
	return et.Reconstitute(rec.After.EventData, rec.After.IdempotencyKey, rec.After.CreatedAt)
}
