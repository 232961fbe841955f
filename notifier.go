package main

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

const (
	progressChannel  = "workflows:progress"
	completedChannel = "workflows:completed"
	latestKeyPrefix  = "wf:"
)

// notifier pushes workflow progress to Redis: a pub/sub update per event
// plus a key holding the latest snapshot location for each workflow.
// Notification failures are logged, never propagated; progress visibility
// is best-effort and must not fail message processing.
type notifier struct {
	rc     *redis.Client
	keyTTL time.Duration
}

func newNotifier(rc *redis.Client, keyTTL time.Duration) *notifier {
	return &notifier{rc: rc, keyTTL: keyTTL}
}

type progressUpdate struct {
	WorkflowID string `json:"workflowId"`
	ObjectKey  string `json:"objectKey,omitempty"`
	Succeeded  *bool  `json:"succeeded,omitempty"`
}

func latestKey(workflowID string) string {
	return latestKeyPrefix + workflowID + ":latest"
}

func (n *notifier) StepProcessed(ctx context.Context, workflowID, objectKey string) {
	if n == nil || n.rc == nil {
		return
	}
	if err := n.rc.Set(ctx, latestKey(workflowID), objectKey, n.keyTTL).Err(); err != nil {
		log.WithError(err).WithField("workflow", workflowID).Error("unable to record latest snapshot key")
	}
	payload, err := sonic.Marshal(progressUpdate{WorkflowID: workflowID, ObjectKey: objectKey})
	if err != nil {
		return
	}
	if err := n.rc.Publish(ctx, progressChannel, payload).Err(); err != nil {
		log.WithError(err).WithField("workflow", workflowID).Errorf("unable to publish update to %s", progressChannel)
	}
}

func (n *notifier) Completed(ctx context.Context, workflowID, objectKey string, succeeded bool) {
	if n == nil || n.rc == nil {
		return
	}
	if err := n.rc.Set(ctx, latestKey(workflowID), objectKey, n.keyTTL).Err(); err != nil {
		log.WithError(err).WithField("workflow", workflowID).Error("unable to record latest snapshot key")
	}
	payload, err := sonic.Marshal(progressUpdate{WorkflowID: workflowID, ObjectKey: objectKey, Succeeded: &succeeded})
	if err != nil {
		return
	}
	if err := n.rc.Publish(ctx, completedChannel, payload).Err(); err != nil {
		log.WithError(err).WithField("workflow", workflowID).Errorf("unable to publish update to %s", completedChannel)
	}
}

// LatestObjectKey returns the most recently recorded snapshot key for a
// workflow.
func (n *notifier) LatestObjectKey(ctx context.Context, workflowID string) (string, error) {
	key, err := n.rc.Get(ctx, latestKey(workflowID)).Result()
	if err == redis.Nil {
		return "", domain.NewFailure(domain.ErrSnapshotNotFound, false, "no snapshot recorded for workflow "+workflowID)
	}
	if err != nil {
		return "", domain.WrapFailure(domain.ErrUnrecognized, true, err, "read latest snapshot key")
	}
	return key, nil
}
