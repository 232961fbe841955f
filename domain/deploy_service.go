package domain

import (
	"context"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// DeployService handles workflow-created events: it builds the aggregate,
// deploys the roster and publishes the first step-processed event.
type DeployService struct {
	snapshots SnapshotWriter
	events    EventPublisher
	roster    []Agent
	responder Agent
}

func NewDeployService(snapshots SnapshotWriter, events EventPublisher, roster []Agent, responder Agent) DeployService {
	return DeployService{snapshots: snapshots, events: events, roster: roster, responder: responder}
}

// Apply deploys a new workflow. Failures are returned verbatim; in
// particular a snapshot collision or duplicate publish means another worker
// already handled this event.
func (s DeployService) Apply(ctx context.Context, ev *Event) error {
	if ev == nil || ev.Name != WorkflowCreated {
		return NewFailure(ErrInvalidArguments, false, "deploy service requires a "+WorkflowCreated+" event")
	}
	var data WorkflowCreatedData
	if err := sonic.Unmarshal(ev.Data, &data); err != nil {
		return WrapFailure(ErrInvalidArguments, false, err, "malformed "+WorkflowCreated+" data")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	wf, err := NewWorkflowWithID(data.WorkflowID, data.Query, data.EnhancePromptRounds, data.EnhanceResultRounds)
	if err != nil {
		return err
	}
	if err := wf.Deploy(data.Query, data.Query, s.roster, s.responder); err != nil {
		return err
	}
	if err := s.snapshots.SaveSnapshot(ctx, wf); err != nil {
		return err
	}

	next, err := NewEvent(WorkflowStepProcessed, WorkflowStepProcessedData{
		WorkflowID: wf.ID,
		ObjectKey:  wf.ObjectKey(),
	})
	if err != nil {
		return err
	}
	if err := s.events.PublishEvent(ctx, next); err != nil {
		return err
	}

	log.WithFields(log.Fields{"workflow": wf.ID, "steps": len(wf.Steps)}).Info("workflow deployed")
	return nil
}
