package domain

import (
	"context"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

// Orchestrator routes events to the appropriate service based on event name.
type Orchestrator struct {
	deploy  DeployService
	process ProcessStepService
}

func NewOrchestrator(deploy DeployService, process ProcessStepService) Orchestrator {
	return Orchestrator{deploy: deploy, process: process}
}

// Apply delegates event handling to the corresponding service. Completed
// events terminate the chain: they are validated and logged, nothing more.
func (o Orchestrator) Apply(ctx context.Context, ev *Event) error {
	if ev == nil {
		return NewFailure(ErrInvalidArguments, false, "event is required")
	}
	switch ev.Name {
	case WorkflowCreated:
		return o.deploy.Apply(ctx, ev)
	case WorkflowStepProcessed:
		return o.process.Apply(ctx, ev)
	case WorkflowCompleted:
		var data WorkflowCompletedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			return WrapFailure(ErrInvalidArguments, false, err, "malformed "+WorkflowCompleted+" data")
		}
		if err := data.Validate(); err != nil {
			return err
		}
		log.WithFields(log.Fields{"workflow": data.WorkflowID, "snapshot": data.ObjectKey, "succeeded": data.Succeeded}).Info("workflow completed")
		return nil
	default:
		return NewFailure(ErrInvalidArguments, false, "unknown event name "+ev.Name)
	}
}
