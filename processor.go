package main

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

type eventApplier interface {
	Apply(ctx context.Context, ev *domain.Event) error
}

type messageDeleter interface {
	DeleteMessage(ctx context.Context, id, receipt string) error
}

// BatchResponse lists the messages whose processing failed transiently.
// Everything else is acknowledged: successes because the work is done,
// non-transient failures because redelivery cannot change the outcome.
type BatchResponse struct {
	FailedMessageIDs []string `json:"failedMessageIds"`
}

type processor struct {
	handler eventApplier
	queue   messageDeleter
	types   map[string]domain.EventType
	tracer  trace.Tracer
}

func newProcessor(handler eventApplier, queue messageDeleter) *processor {
	return &processor{
		handler: handler,
		queue:   queue,
		types:   domain.EventTypes(),
		tracer:  otel.Tracer("workflow-worker"),
	}
}

// ProcessBatch handles each message independently: one message's failure
// never aborts its siblings. A missing or empty batch is an empty success.
func (p *processor) ProcessBatch(ctx context.Context, msgs []*azqueue.DequeuedMessage) BatchResponse {
	resp := BatchResponse{FailedMessageIDs: []string{}}
	for _, msg := range msgs {
		if msg == nil || msg.MessageID == nil || msg.PopReceipt == nil {
			continue
		}
		if !p.processMessage(ctx, msg) {
			resp.FailedMessageIDs = append(resp.FailedMessageIDs, *msg.MessageID)
		}
	}
	return resp
}

// processMessage returns false when the message must be redelivered.
func (p *processor) processMessage(ctx context.Context, msg *azqueue.DequeuedMessage) bool {
	ctx, span := p.tracer.Start(ctx, "worker.process_message")
	defer span.End()

	if msg.MessageText == nil {
		log.WithField("message", *msg.MessageID).Error("message has no body")
		return p.ack(ctx, msg)
	}

	ev, err := domain.EventFromChangeRecord(p.types, []byte(*msg.MessageText))
	if err != nil {
		// Malformed records and unknown event names cannot be repaired by
		// redelivery; drop them from the retry path.
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconstitute")
		log.WithError(err).WithField("message", *msg.MessageID).Error("dropping unreadable message")
		return p.ack(ctx, msg)
	}
	span.SetAttributes(
		attribute.String("event.name", ev.Name),
		attribute.String("event.idempotency_key", ev.IdempotencyKey),
	)

	if err := p.handler.Apply(ctx, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
		if domain.IsTransient(err) {
			log.WithError(err).WithFields(log.Fields{"message": *msg.MessageID, "event": ev.Name}).Warn("transient failure, message left for redelivery")
			return false
		}
		log.WithError(err).WithFields(log.Fields{"message": *msg.MessageID, "event": ev.Name}).Error("dropping poison message")
		return p.ack(ctx, msg)
	}

	return p.ack(ctx, msg)
}

func (p *processor) ack(ctx context.Context, msg *azqueue.DequeuedMessage) bool {
	if err := p.queue.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt); err != nil {
		log.WithError(err).WithField("message", *msg.MessageID).Warn("delete failed, message will redeliver")
		return false
	}
	return true
}
