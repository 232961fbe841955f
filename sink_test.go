package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

// fakeEventLog mimics the event table plus the change-feed queue: publishes
// dedupe on the idempotency key, enqueues produce change-record bodies.
type fakeEventLog struct {
	keys   map[string]bool
	queued []string
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{keys: map[string]bool{}}
}

func (l *fakeEventLog) PublishEvent(_ context.Context, ev *domain.Event) error {
	if l.keys[ev.IdempotencyKey] {
		return domain.NewFailure(domain.ErrDuplicateEvent, false, "event "+ev.IdempotencyKey+" already recorded")
	}
	l.keys[ev.IdempotencyKey] = true
	return nil
}

func (l *fakeEventLog) EnqueueEvent(_ context.Context, ev *domain.Event) error {
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
		return err
	}
	l.queued = append(l.queued, string(payload))
	return nil
}

// fakeSnapshotTable is an insert-only snapshot store keyed by ObjectKey.
type fakeSnapshotTable struct {
	snapshots map[string][]byte
}

func newFakeSnapshotTable() *fakeSnapshotTable {
	return &fakeSnapshotTable{snapshots: map[string][]byte{}}
}

func (s *fakeSnapshotTable) SaveSnapshot(_ context.Context, wf *domain.Workflow) error {
	key := wf.ObjectKey()
	if _, ok := s.snapshots[key]; ok {
		return domain.NewFailure(domain.ErrSnapshotCollision, false, "snapshot exists: "+key)
	}
	raw, err := sonic.Marshal(wf)
	if err != nil {
		return err
	}
	s.snapshots[key] = raw
	return nil
}

func (s *fakeSnapshotTable) ReadSnapshot(_ context.Context, objectKey string) (*domain.Workflow, error) {
	raw, ok := s.snapshots[objectKey]
	if !ok {
		return nil, domain.NewFailure(domain.ErrSnapshotNotFound, false, "no snapshot: "+objectKey)
	}
	var wf domain.Workflow
	if err := sonic.Unmarshal(raw, &wf); err != nil {
		return nil, domain.WrapFailure(domain.ErrSnapshotCorrupted, false, err, "decode snapshot")
	}
	return &wf, nil
}

type stubInvoker struct{}

func (stubInvoker) Invoke(_ context.Context, _, _ string) (string, error) {
	return "stub result", nil
}

type captureNotifier struct {
	steps     []string
	completed []string
}

func (n *captureNotifier) StepProcessed(_ context.Context, workflowID, objectKey string) {
	n.steps = append(n.steps, workflowID+"|"+objectKey)
}

func (n *captureNotifier) Completed(_ context.Context, workflowID, objectKey string, succeeded bool) {
	n.completed = append(n.completed, fmt.Sprintf("%s|%s|%t", workflowID, objectKey, succeeded))
}

func TestEventSinkNotifiesPublishedProgress(t *testing.T) {
	notif := &captureNotifier{}
	sink := eventSink{store: newFakeEventLog(), notify: notif}
	ctx := context.Background()

	step, err := domain.NewEvent(domain.WorkflowStepProcessed, domain.WorkflowStepProcessedData{
		WorkflowID: "wf-1",
		ObjectKey:  "wf-1/002-enhance_prompt-r1-clarifier",
	})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := sink.PublishEvent(ctx, step); err != nil {
		t.Fatalf("publish: %v", err)
	}

	done, err := domain.NewEvent(domain.WorkflowCompleted, domain.WorkflowCompletedData{
		WorkflowID: "wf-1",
		ObjectKey:  "wf-1/005-enhance_result-r1-critic",
		Succeeded:  true,
	})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := sink.PublishEvent(ctx, done); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(notif.steps) != 1 || notif.steps[0] != "wf-1|wf-1/002-enhance_prompt-r1-clarifier" {
		t.Fatalf("step notifications = %v", notif.steps)
	}
	if len(notif.completed) != 1 || notif.completed[0] != "wf-1|wf-1/005-enhance_result-r1-critic|true" {
		t.Fatalf("completed notifications = %v", notif.completed)
	}
}

func TestEventSinkDuplicatePublishStillForwardsAndNotifies(t *testing.T) {
	notif := &captureNotifier{}
	logStore := newFakeEventLog()
	sink := eventSink{store: logStore, notify: notif}
	ctx := context.Background()

	step, err := domain.NewEvent(domain.WorkflowStepProcessed, domain.WorkflowStepProcessedData{
		WorkflowID: "wf-1",
		ObjectKey:  "wf-1/001-deploy",
	})
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := sink.PublishEvent(ctx, step); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := sink.PublishEvent(ctx, step); !domain.IsKind(err, domain.ErrDuplicateEvent) {
		t.Fatalf("expected duplicate-event, got %v", err)
	}
	if len(logStore.queued) != 2 {
		t.Fatalf("queued = %d, duplicate publish must still forward the envelope", len(logStore.queued))
	}
	if len(notif.steps) != 2 {
		t.Fatalf("notifications = %d, duplicate publish must still notify", len(notif.steps))
	}
}

func TestLatestKeyTracksTerminalSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	notif := newNotifier(rc, time.Hour)
	ctx := context.Background()

	logStore := newFakeEventLog()
	snaps := newFakeSnapshotTable()
	sink := eventSink{store: logStore, notify: notif}
	deploy := domain.NewDeployService(snaps, sink, domain.DefaultRoster(), domain.DefaultFirstResponder())
	process := domain.NewProcessStepService(snaps, sink, stubInvoker{})
	orch := domain.NewOrchestrator(deploy, process)
	proc := newProcessor(orch, &fakeDeleter{})

	created, err := domain.NewEvent(domain.WorkflowCreated, domain.WorkflowCreatedData{
		WorkflowID:          "wf-1",
		Query:               "Plan a rollout",
		EnhancePromptRounds: 1,
		EnhanceResultRounds: 1,
	})
	if err != nil {
		t.Fatalf("created event: %v", err)
	}
	if err := logStore.EnqueueEvent(ctx, created); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	for next := 0; next < len(logStore.queued); next++ {
		if next > 50 {
			t.Fatal("workflow did not terminate")
		}
		msg := queuedMessage(fmt.Sprintf("m%d", next), logStore.queued[next])
		resp := proc.ProcessBatch(ctx, []*azqueue.DequeuedMessage{msg})
		if len(resp.FailedMessageIDs) != 0 {
			t.Fatalf("message %d failed: %v", next, resp.FailedMessageIDs)
		}
		if next == 0 {
			// A freshly deployed workflow must already be readable.
			key, err := notif.LatestObjectKey(ctx, "wf-1")
			if err != nil {
				t.Fatalf("latest key after deploy: %v", err)
			}
			if key != "wf-1/001-deploy" {
				t.Fatalf("latest key after deploy = %q", key)
			}
		}
	}

	key, err := notif.LatestObjectKey(ctx, "wf-1")
	if err != nil {
		t.Fatalf("latest key: %v", err)
	}
	wf, err := snaps.ReadSnapshot(ctx, key)
	if err != nil {
		t.Fatalf("read snapshot at latest key %q: %v", key, err)
	}
	if !wf.HasCompleted() {
		t.Fatalf("latest key %q must name the terminal snapshot", key)
	}
	if key != wf.ObjectKey() {
		t.Fatalf("latest key %q does not match terminal object key %q", key, wf.ObjectKey())
	}
}
