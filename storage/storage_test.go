package storage

import (
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/mutchinick/ai-workflow-architect-sub001/domain"
)

func TestSanitizeTableKeyIsDeterministic(t *testing.T) {
	cases := map[string]string{
		"wf-1#created":                 "wf-1:created",
		"wf-1#wf-1/001-deploy":         "wf-1:wf-1:001-deploy",
		"a\\b?c":                       "a:b:c",
		"plain-key":                    "plain-key",
		"wf-1#wf-1/002-enhance_prompt": "wf-1:wf-1:002-enhance_prompt",
	}
	for in, want := range cases {
		if got := sanitizeTableKey(in); got != want {
			t.Fatalf("sanitizeTableKey(%q) = %q, want %q", in, got, want)
		}
		// Sanitizing twice must not change the result; replayed writes have
		// to land on the same row.
		if got := sanitizeTableKey(sanitizeTableKey(in)); got != want {
			t.Fatalf("sanitizeTableKey is not stable for %q", in)
		}
	}
}

func TestSplitObjectKey(t *testing.T) {
	pk, rk, err := splitObjectKey("wf-1/001-deploy")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if pk != "wf-1" || rk != "001-deploy" {
		t.Fatalf("split = (%q, %q)", pk, rk)
	}

	// Only the first separator splits; the remainder is sanitized into the
	// row key.
	pk, rk, err = splitObjectKey("wf-1/sub/step")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if pk != "wf-1" || rk != "sub:step" {
		t.Fatalf("split = (%q, %q)", pk, rk)
	}

	for _, bad := range []string{"", "wf-1", "/step", "wf-1/"} {
		if _, _, err := splitObjectKey(bad); !domain.IsKind(err, domain.ErrInvalidArguments) {
			t.Fatalf("splitObjectKey(%q): expected invalid-arguments, got %v", bad, err)
		}
	}
}

func TestConflictAndNotFoundDetection(t *testing.T) {
	conflict := &azcore.ResponseError{StatusCode: 409, ErrorCode: "EntityAlreadyExists"}
	missing := &azcore.ResponseError{StatusCode: 404, ErrorCode: "ResourceNotFound"}

	if !isConflict(conflict) || isConflict(missing) {
		t.Fatal("conflict detection must key on status 409")
	}
	if !isNotFound(missing) || isNotFound(conflict) {
		t.Fatal("not-found detection must key on status 404")
	}

	wrapped := fmt.Errorf("add entity: %w", conflict)
	if !isConflict(wrapped) {
		t.Fatal("conflict detection must see through wrapping")
	}
	if isConflict(fmt.Errorf("plain failure")) || isNotFound(nil) {
		t.Fatal("non-service errors must not classify")
	}
}

func TestDecodeSnapshotRejectsCorruptData(t *testing.T) {
	if _, err := decodeSnapshot([]byte("not json")); err == nil {
		t.Fatal("expected decode failure")
	}
	_, err := decodeSnapshot([]byte(`{"query":"orphan"}`))
	if !domain.IsKind(err, domain.ErrSnapshotCorrupted) {
		t.Fatalf("expected snapshot-corrupted for missing id, got %v", err)
	}
}

func TestDecodeSnapshotRoundTrip(t *testing.T) {
	wf, err := decodeSnapshot([]byte(`{"workflowId":"wf-1","query":"Some query","enhancePromptRounds":1,"enhanceResultRounds":1,"steps":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wf.ID != "wf-1" || wf.Query != "Some query" {
		t.Fatalf("decoded workflow = %+v", wf)
	}
}
