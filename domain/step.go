package domain

import (
	"fmt"
	"strings"
)

// StepStatus is two-state on purpose: a step either has not run or has run.
// Retries are handled by the queue, not by the aggregate.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
)

// StepKind names the work a step performs.
type StepKind string

const (
	StepDeploy        StepKind = "deploy"
	StepEnhancePrompt StepKind = "enhance_prompt"
	StepRespond       StepKind = "respond"
	StepEnhanceResult StepKind = "enhance_result"
)

// Step is one unit of workflow progress. LLM fields are populated when the
// step completes.
type Step struct {
	ID        string     `json:"stepId"`
	Kind      StepKind   `json:"kind"`
	Status    StepStatus `json:"stepStatus"`
	Order     int        `json:"executionOrder"`
	Round     int        `json:"round,omitempty"`
	Agent     Agent      `json:"agent"`
	LLMSystem string     `json:"llmSystem,omitempty"`
	LLMPrompt string     `json:"llmPrompt,omitempty"`
	LLMResult string     `json:"llmResult,omitempty"`
}

// stepID derives a human-readable, collision-free, lexically sortable step
// identity. The zero-padded execution order keeps table listings in
// execution order; round and agent name disambiguate roster steps.
func stepID(order, round int, kind StepKind, agentName string) string {
	id := fmt.Sprintf("%03d-%s", order, kind)
	if round > 0 {
		id += fmt.Sprintf("-r%d", round)
	}
	if s := slug(agentName); s != "" {
		id += "-" + s
	}
	return id
}

// slug normalizes an agent or role name: lowercase, with runs of anything
// outside [a-z0-9] collapsed to a single hyphen.
func slug(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
