package domain

import (
	"context"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// ProcessStepService handles workflow-step-processed events: it advances
// the workflow exactly one step and publishes the event for the next stage.
type ProcessStepService struct {
	snapshots SnapshotStore
	events    EventPublisher
	llm       Invoker
}

func NewProcessStepService(snapshots SnapshotStore, events EventPublisher, llm Invoker) ProcessStepService {
	return ProcessStepService{snapshots: snapshots, events: events, llm: llm}
}

// Apply performs one step transition. Every stage short-circuits on the
// first failure and returns it unchanged: the event store's conditional
// write and the snapshot store's insert-only write are the only commit
// points, so a retried run after a partial failure is safe.
func (s ProcessStepService) Apply(ctx context.Context, ev *Event) error {
	if ev == nil || ev.Name != WorkflowStepProcessed {
		return NewFailure(ErrInvalidArguments, false, "process service requires a "+WorkflowStepProcessed+" event")
	}
	var data WorkflowStepProcessedData
	if err := sonic.Unmarshal(ev.Data, &data); err != nil {
		return WrapFailure(ErrInvalidArguments, false, err, "malformed "+WorkflowStepProcessed+" data")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	wf, err := s.snapshots.ReadSnapshot(ctx, data.ObjectKey)
	if err != nil {
		return err
	}

	step := wf.CurrentStep()
	if step == nil {
		return NewFailure(ErrWorkflowCompleted, false, "workflow "+wf.ID+" has no pending step")
	}

	prompt, err := wf.ResolvePrompt(step)
	if err != nil {
		return err
	}

	result, err := s.llm.Invoke(ctx, step.Agent.SystemPrompt, prompt)
	if err != nil {
		return err
	}

	if err := wf.CompleteStep(step.ID, prompt, result); err != nil {
		return err
	}
	if err := s.snapshots.SaveSnapshot(ctx, wf); err != nil {
		return err
	}

	var next *Event
	if wf.HasCompleted() {
		next, err = NewEvent(WorkflowCompleted, WorkflowCompletedData{WorkflowID: wf.ID, ObjectKey: wf.ObjectKey(), Succeeded: true})
	} else {
		next, err = NewEvent(WorkflowStepProcessed, WorkflowStepProcessedData{WorkflowID: wf.ID, ObjectKey: wf.ObjectKey()})
	}
	if err != nil {
		return err
	}
	if err := s.events.PublishEvent(ctx, next); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"workflow": wf.ID,
		"step":     step.ID,
		"done":     wf.HasCompleted(),
	}).Info("workflow step processed")
	return nil
}
