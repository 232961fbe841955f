package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// eventData is implemented by every event payload type.
type eventData interface {
	Validate() error
	IdempotencyKey() string
}

// EventType describes one event name: how to build a fresh event from a
// payload and how to reconstitute a previously stored one.
type EventType struct {
	Name string

	// New validates raw payload data, derives the idempotency key and
	// stamps the current time.
	New func(data []byte) (*Event, error)

	// Reconstitute validates raw payload data but preserves the stored
	// idempotency key and creation time verbatim. It never regenerates
	// either value.
	Reconstitute func(data []byte, idempotencyKey, createdAt string) (*Event, error)
}

func eventTypeFor[D eventData](name string) EventType {
	parse := func(data []byte) (D, error) {
		var d D
		if len(data) == 0 {
			return d, NewFailure(ErrInvalidArguments, false, "event data is empty")
		}
		if err := sonic.Unmarshal(data, &d); err != nil {
			return d, WrapFailure(ErrInvalidArguments, false, err, "malformed event data")
		}
		if err := d.Validate(); err != nil {
			return d, err
		}
		return d, nil
	}
	return EventType{
		Name: name,
		New: func(data []byte) (*Event, error) {
			d, err := parse(data)
			if err != nil {
				return nil, err
			}
			return &Event{
				Name:           name,
				IdempotencyKey: d.IdempotencyKey(),
				Data:           append([]byte(nil), data...),
				CreatedAt:      nowRFC3339(),
			}, nil
		},
		Reconstitute: func(data []byte, idempotencyKey, createdAt string) (*Event, error) {
			if strings.TrimSpace(idempotencyKey) == "" {
				return nil, NewFailure(ErrInvalidArguments, false, "idempotencyKey is required to reconstitute")
			}
			if strings.TrimSpace(createdAt) == "" {
				return nil, NewFailure(ErrInvalidArguments, false, "createdAt is required to reconstitute")
			}
			if _, err := parse(data); err != nil {
				return nil, err
			}
			return &Event{
				Name:           name,
				IdempotencyKey: idempotencyKey,
				Data:           append([]byte(nil), data...),
				CreatedAt:      createdAt,
			}, nil
		},
	}
}

// eventTypes is built once at process start and treated as read-only
// afterwards.
var eventTypes = map[string]EventType{
	WorkflowCreated:       eventTypeFor[WorkflowCreatedData](WorkflowCreated),
	WorkflowStepProcessed: eventTypeFor[WorkflowStepProcessedData](WorkflowStepProcessed),
	WorkflowCompleted:     eventTypeFor[WorkflowCompletedData](WorkflowCompleted),
}

// EventTypes returns the registry mapping event names to their types. Callers
// must not mutate the returned map.
func EventTypes() map[string]EventType {
	return eventTypes
}

// NewEvent builds a fresh event from a typed payload.
func NewEvent(name string, data eventData) (*Event, error) {
	et, ok := EventTypes()[name]
	if !ok {
		return nil, NewFailure(ErrInvalidArguments, false, "unknown event name "+name)
	}
	raw, err := sonic.Marshal(data)
	if err != nil {
		return nil, WrapFailure(ErrInvalidArguments, false, err, "encode event data")
	}
	return et.New(raw)
}
