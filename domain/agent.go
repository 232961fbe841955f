package domain

// Agent is a static descriptor for a council member. Prompt templates may
// embed PreviousResultToken, resolved against the last executed step before
// the LLM is invoked.
type Agent struct {
	Name           string `json:"name"`
	Role           string `json:"role"`
	Directive      string `json:"directive"`
	SystemPrompt   string `json:"systemPrompt"`
	PromptTemplate string `json:"promptTemplate"`
}

// PreviousResultToken is the placeholder for the previous completed step's
// result inside a prompt template.
const PreviousResultToken = "{{previous_result}}"

// QueryToken is the placeholder for the workflow's original query.
const QueryToken = "{{query}}"

// DefaultRoster returns the built-in council of enhancement agents.
func DefaultRoster() []Agent {
	return []Agent{
		{
			Name:           "Clarifier",
			Role:           "prompt analyst",
			Directive:      "sharpen intent and remove ambiguity",
			SystemPrompt:   "You refine requests so they are precise and self-contained.",
			PromptTemplate: "Original query: {{query}}\nCurrent material:\n{{previous_result}}\nRewrite the material so the intent is unambiguous.",
		},
		{
			Name:           "Critic",
			Role:           "reviewer",
			Directive:      "find gaps and weak reasoning",
			SystemPrompt:   "You review working material and strengthen its weakest parts.",
			PromptTemplate: "Original query: {{query}}\nCurrent material:\n{{previous_result}}\nImprove the material by fixing its most significant weakness.",
		},
	}
}

// DefaultFirstResponder returns the built-in responder agent that produces
// the first full answer.
func DefaultFirstResponder() Agent {
	return Agent{
		Name:           "Responder",
		Role:           "first responder",
		Directive:      "produce the first complete answer",
		SystemPrompt:   "You answer thoroughly and directly.",
		PromptTemplate: "Answer the following request:\n{{previous_result}}",
	}
}
