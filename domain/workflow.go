package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Round-count bounds accepted by NewWorkflow and the created event.
const (
	MinRounds = 1
	MaxRounds = 10
)

// createdKeySuffix is the snapshot suffix used before any step completes.
const createdKeySuffix = "created"

// Workflow is the aggregate: the user's instructions plus an append-only,
// execution-ordered step list. It is pure in-memory state; persistence
// happens through the snapshot store keyed by ObjectKey.
type Workflow struct {
	ID                  string `json:"workflowId"`
	Query               string `json:"query"`
	EnhancePromptRounds int    `json:"enhancePromptRounds"`
	EnhanceResultRounds int    `json:"enhanceResultRounds"`
	Steps               []Step `json:"steps"`
}

// NewWorkflow creates an empty workflow with a fresh time-ordered identity.
func NewWorkflow(query string, enhancePromptRounds, enhanceResultRounds int) (*Workflow, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, WrapFailure(ErrUnrecognized, true, err, "generate workflow id")
	}
	return NewWorkflowWithID(id.String(), query, enhancePromptRounds, enhanceResultRounds)
}

// NewWorkflowWithID creates an empty workflow under an existing identity,
// used when the identity was assigned by the intake that published the
// created event.
func NewWorkflowWithID(id, query string, enhancePromptRounds, enhanceResultRounds int) (*Workflow, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewFailure(ErrInvalidArguments, false, "workflow id is required")
	}
	if len(strings.TrimSpace(query)) < minQueryLength {
		return nil, NewFailure(ErrInvalidArguments, false, "query is too short")
	}
	if enhancePromptRounds < MinRounds || enhancePromptRounds > MaxRounds {
		return nil, NewFailure(ErrInvalidArguments, false, "enhancePromptRounds out of range")
	}
	if enhanceResultRounds < MinRounds || enhanceResultRounds > MaxRounds {
		return nil, NewFailure(ErrInvalidArguments, false, "enhanceResultRounds out of range")
	}
	return &Workflow{
		ID:                  id,
		Query:               query,
		EnhancePromptRounds: enhancePromptRounds,
		EnhanceResultRounds: enhanceResultRounds,
	}, nil
}

// Deploy populates the step list. It is a one-time operation: a workflow
// that already has steps rejects a second deployment. The deploy step is
// recorded as completed with the initial prompt/result; every roster step
// starts pending.
func (w *Workflow) Deploy(initialPrompt, initialResult string, roster []Agent, firstResponder Agent) error {
	if len(w.Steps) > 0 {
		return NewFailure(ErrInvalidArguments, false, "workflow already deployed")
	}
	if len(roster) == 0 {
		return NewFailure(ErrInvalidArguments, false, "roster is empty")
	}
	if strings.TrimSpace(firstResponder.Name) == "" {
		return NewFailure(ErrInvalidArguments, false, "first responder is required")
	}

	order := 1
	steps := []Step{{
		ID:        stepID(order, 0, StepDeploy, ""),
		Kind:      StepDeploy,
		Status:    StepCompleted,
		Order:     order,
		LLMPrompt: initialPrompt,
		LLMResult: initialResult,
	}}

	for round := 1; round <= w.EnhancePromptRounds; round++ {
		for _, agent := range roster {
			order++
			steps = append(steps, Step{
				ID:     stepID(order, round, StepEnhancePrompt, agent.Name),
				Kind:   StepEnhancePrompt,
				Status: StepPending,
				Order:  order,
				Round:  round,
				Agent:  agent,
			})
		}
	}

	order++
	steps = append(steps, Step{
		ID:     stepID(order, 0, StepRespond, firstResponder.Name),
		Kind:   StepRespond,
		Status: StepPending,
		Order:  order,
		Agent:  firstResponder,
	})

	for round := 1; round <= w.EnhanceResultRounds; round++ {
		for _, agent := range roster {
			order++
			steps = append(steps, Step{
				ID:     stepID(order, round, StepEnhanceResult, agent.Name),
				Kind:   StepEnhanceResult,
				Status: StepPending,
				Order:  order,
				Round:  round,
				Agent:  agent,
			})
		}
	}

	w.Steps = steps
	return nil
}

// CurrentStep returns the first pending step, or nil when every step has
// completed or the workflow has no steps.
func (w *Workflow) CurrentStep() *Step {
	for i := range w.Steps {
		if w.Steps[i].Status == StepPending {
			return &w.Steps[i]
		}
	}
	return nil
}

// LastExecutedStep returns the completed step with the highest execution
// order, or nil when no step has completed.
func (w *Workflow) LastExecutedStep() *Step {
	var last *Step
	for i := range w.Steps {
		if w.Steps[i].Status == StepCompleted {
			last = &w.Steps[i]
		}
	}
	return last
}

// CompleteStep records the outcome of the current step and flips it to
// completed. The target must be the step CurrentStep returns; completing
// anything else is a contract violation.
func (w *Workflow) CompleteStep(stepID, prompt, result string) error {
	cur := w.CurrentStep()
	if cur == nil {
		return NewFailure(ErrWorkflowCompleted, false, "workflow has no pending step")
	}
	if cur.ID != stepID {
		return NewFailure(ErrInvalidArguments, false, fmt.Sprintf("step %s is not the current step (%s)", stepID, cur.ID))
	}
	cur.LLMSystem = cur.Agent.SystemPrompt
	cur.LLMPrompt = prompt
	cur.LLMResult = result
	cur.Status = StepCompleted
	return nil
}

// HasCompleted reports whether the workflow reached its terminal state:
// a non-empty step list with every step completed.
func (w *Workflow) HasCompleted() bool {
	if len(w.Steps) == 0 {
		return false
	}
	return w.CurrentStep() == nil
}

// ObjectKey derives the snapshot storage key from workflow progress. Two
// workers racing to persist the same progress state derive the same key and
// collide on the snapshot store's insert-only write; the loser surfaces a
// collision instead of overwriting. The key is derived from the last
// completed step whenever one exists; the created suffix only covers the
// window before any completion.
func (w *Workflow) ObjectKey() string {
	last := w.LastExecutedStep()
	if last == nil {
		return w.ID + "/" + createdKeySuffix
	}
	return w.ID + "/" + last.ID
}

// ResolvePrompt renders the step's prompt template, substituting the query
// token and the previous-result token. A previous-result token with no
// completed predecessor indicates a malformed step graph.
func (w *Workflow) ResolvePrompt(step *Step) (string, error) {
	if step == nil {
		return "", NewFailure(ErrInvalidArguments, false, "step is required")
	}
	prompt := step.Agent.PromptTemplate
	if prompt == "" {
		return "", NewFailure(ErrWorkflowInvalidState, false, "step "+step.ID+" has no prompt template")
	}
	prompt = strings.ReplaceAll(prompt, QueryToken, w.Query)
	if strings.Contains(prompt, PreviousResultToken) {
		last := w.LastExecutedStep()
		if last == nil || last.LLMResult == "" {
			return "", NewFailure(ErrWorkflowInvalidState, false, "step "+step.ID+" references a previous result but none exists")
		}
		prompt = strings.ReplaceAll(prompt, PreviousResultToken, last.LLMResult)
	}
	return prompt, nil
}
