package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const minQueryLength = 3

// WorkflowCreatedData starts a workflow for a user query.
type WorkflowCreatedData struct {
	WorkflowID          string `json:"workflowId"`
	Query               string `json:"query"`
	EnhancePromptRounds int    `json:"enhancePromptRounds"`
	EnhanceResultRounds int    `json:"enhanceResultRounds"`
}

func (d WorkflowCreatedData) Validate() error {
	if strings.TrimSpace(d.WorkflowID) == "" {
		return NewFailure(ErrInvalidArguments, false, "workflowId is required")
	}
	if len(strings.TrimSpace(d.Query)) < minQueryLength {
		return NewFailure(ErrInvalidArguments, false, fmt.Sprintf("query must be at least %d characters", minQueryLength))
	}
	if d.EnhancePromptRounds < MinRounds || d.EnhancePromptRounds > MaxRounds {
		return NewFailure(ErrInvalidArguments, false, fmt.Sprintf("enhancePromptRounds must be in [%d,%d]", MinRounds, MaxRounds))
	}
	if d.EnhanceResultRounds < MinRounds || d.EnhanceResultRounds > MaxRounds {
		return NewFailure(ErrInvalidArguments, false, fmt.Sprintf("enhanceResultRounds must be in [%d,%d]", MinRounds, MaxRounds))
	}
	return nil
}

func (d WorkflowCreatedData) IdempotencyKey() string {
	return d.WorkflowID + "#created"
}

// WorkflowStepProcessedData records that a workflow advanced one step and
// names the snapshot persisted at that progress point.
type WorkflowStepProcessedData struct {
	WorkflowID string `json:"workflowId"`
	ObjectKey  string `json:"objectKey"`
}

func (d WorkflowStepProcessedData) Validate() error {
	if strings.TrimSpace(d.WorkflowID) == "" {
		return NewFailure(ErrInvalidArguments, false, "workflowId is required")
	}
	if strings.TrimSpace(d.ObjectKey) == "" {
		return NewFailure(ErrInvalidArguments, false, "objectKey is required")
	}
	if !strings.HasPrefix(d.ObjectKey, d.WorkflowID+"/") {
		return NewFailure(ErrInvalidArguments, false, "objectKey does not belong to workflow")
	}
	return nil
}

func (d WorkflowStepProcessedData) IdempotencyKey() string {
	return d.WorkflowID + "#" + d.ObjectKey
}

// WorkflowCompletedData marks a workflow terminal and names the snapshot
// holding its final state.
type WorkflowCompletedData struct {
	WorkflowID string `json:"workflowId"`
	ObjectKey  string `json:"objectKey"`
	Succeeded  bool   `json:"succeeded"`
}

func (d WorkflowCompletedData) Validate() error {
	if strings.TrimSpace(d.WorkflowID) == "" {
		return NewFailure(ErrInvalidArguments, false, "workflowId is required")
	}
	if strings.TrimSpace(d.ObjectKey) == "" {
		return NewFailure(ErrInvalidArguments, false, "objectKey is required")
	}
	if !strings.HasPrefix(d.ObjectKey, d.WorkflowID+"/") {
		return NewFailure(ErrInvalidArguments, false, "objectKey does not belong to workflow")
	}
	return nil
}

func (d WorkflowCompletedData) IdempotencyKey() string {
	return d.WorkflowID + "#completed=" + strconv.FormatBool(d.Succeeded)
}
