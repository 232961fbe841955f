package domain

import "testing"

func TestStepIDFormat(t *testing.T) {
	cases := []struct {
		order int
		round int
		kind  StepKind
		agent string
		want  string
	}{
		{1, 0, StepDeploy, "", "001-deploy"},
		{2, 1, StepEnhancePrompt, "AgentA", "002-enhance_prompt-r1-agenta"},
		{3, 0, StepRespond, "First Responder", "003-respond-first-responder"},
		{12, 2, StepEnhanceResult, "Dr. Strange!!", "012-enhance_result-r2-dr-strange"},
	}
	for _, tc := range cases {
		if got := stepID(tc.order, tc.round, tc.kind, tc.agent); got != tc.want {
			t.Fatalf("stepID(%d,%d,%s,%q) = %q, want %q", tc.order, tc.round, tc.kind, tc.agent, got, tc.want)
		}
	}
}

func TestSlugNormalization(t *testing.T) {
	cases := map[string]string{
		"AgentA":        "agenta",
		"Agent A":       "agent-a",
		"  spaced out ": "spaced-out",
		"a--b..c":       "a-b-c",
		"!!!":           "",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Fatalf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
