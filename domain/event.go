package domain

import (
	"time"

	"github.com/bytedance/sonic"
)

// Event names. Each name owns one registry entry and one payload schema.
const (
	WorkflowCreated       = "workflow-created"
	WorkflowStepProcessed = "workflow-step-processed"
	WorkflowCompleted     = "workflow-completed"
)

// Event is a domain event as stored in the event log. The idempotency key
// is a deterministic function of the payload; two events built from equal
// payloads carry equal keys, which is what makes publication idempotent.
type Event struct {
	Name           string                 `json:"eventName"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	Data           sonic.NoCopyRawMessage `json:"eventData"`
	CreatedAt      string                 `json:"createdAt"`
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
