package storage

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

// DequeueBatch retrieves up to max messages from the events queue. An empty
// slice means the queue had nothing to deliver.
func (s *Storage) DequeueBatch(ctx context.Context, max int32) ([]*azqueue.DequeuedMessage, error) {
	if max <= 0 {
		max = 1
	}
	resp, err := s.queue.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{NumberOfMessages: &max})
	if err != nil {
		return nil, domain.WrapFailure(domain.ErrUnrecognized, true, err, "dequeue batch")
	}
	return resp.Messages, nil
}

// DeleteMessage acknowledges a processed message so the queue will not
// redeliver it.
func (s *Storage) DeleteMessage(ctx context.Context, id, receipt string) error {
	if _, err := s.queue.DeleteMessage(ctx, id, receipt, nil); err != nil {
		return domain.WrapFailure(domain.ErrUnrecognized, true, err, "delete message "+id)
	}
	return nil
}
