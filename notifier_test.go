package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

func testNotifier(t *testing.T) (*notifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })
	return newNotifier(rc, time.Hour), mr
}

func TestStepProcessedRecordsLatestKey(t *testing.T) {
	n, mr := testNotifier(t)
	ctx := context.Background()

	n.StepProcessed(ctx, "wf-1", "wf-1/001-deploy")
	n.StepProcessed(ctx, "wf-1", "wf-1/002-enhance_prompt-r1-clarifier")

	got, err := mr.Get("wf:wf-1:latest")
	if err != nil {
		t.Fatalf("get latest key: %v", err)
	}
	if got != "wf-1/002-enhance_prompt-r1-clarifier" {
		t.Fatalf("latest key = %q", got)
	}
	if ttl := mr.TTL("wf:wf-1:latest"); ttl != time.Hour {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestLatestObjectKeyRoundTrip(t *testing.T) {
	n, _ := testNotifier(t)
	ctx := context.Background()

	n.StepProcessed(ctx, "wf-1", "wf-1/003-respond-responder")
	key, err := n.LatestObjectKey(ctx, "wf-1")
	if err != nil {
		t.Fatalf("latest object key: %v", err)
	}
	if key != "wf-1/003-respond-responder" {
		t.Fatalf("key = %q", key)
	}
}

func TestCompletedRecordsTerminalKey(t *testing.T) {
	n, mr := testNotifier(t)
	ctx := context.Background()

	n.StepProcessed(ctx, "wf-1", "wf-1/003-respond-responder")
	n.Completed(ctx, "wf-1", "wf-1/004-enhance_result-r1-clarifier", true)

	got, err := mr.Get("wf:wf-1:latest")
	if err != nil {
		t.Fatalf("get latest key: %v", err)
	}
	if got != "wf-1/004-enhance_result-r1-clarifier" {
		t.Fatalf("latest key = %q, completion must record the terminal snapshot", got)
	}
}

func TestLatestObjectKeyUnknownWorkflowIsNotFound(t *testing.T) {
	n, _ := testNotifier(t)
	_, err := n.LatestObjectKey(context.Background(), "wf-missing")
	if !domain.IsKind(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected snapshot-not-found, got %v", err)
	}
	if domain.IsTransient(err) {
		t.Fatal("unknown workflow is not a retryable condition")
	}
}

func TestNotifierFailuresAreSwallowed(t *testing.T) {
	n, mr := testNotifier(t)
	mr.Close()

	// Both calls hit a dead server; neither may panic or surface an error.
	n.StepProcessed(context.Background(), "wf-1", "wf-1/001-deploy")
	n.Completed(context.Background(), "wf-1", "wf-1/004-enhance_result-r1-clarifier", false)
}

func TestNilNotifierIsInert(t *testing.T) {
	var n *notifier
	n.StepProcessed(context.Background(), "wf-1", "wf-1/001-deploy")
	n.Completed(context.Background(), "wf-1", "wf-1/004-enhance_result-r1-clarifier", true)
}
