package evaluation

import (
	"time"

	"bistro/internal/agents"
	"bistro/internal/models"
)

// Step is one customer message and what the reply should look like.
// Empty expectations are not checked.
type Step struct {
	Input    string
	Stage    models.Stage
	Agent    agents.AgentRole
	Intent   models.Intent
	Contains string
}

// Outcome is the expected state once the script has run
type Outcome struct {
	Stage       models.Stage
	OrderPlaced bool
	Items       int
	Method      models.DeliveryMethod
}

// Scenario is a scripted conversation
type Scenario struct {
	ID          string
	Name        string
	Type        string
	Description string
	Steps       []Step
	Outcome     Outcome
}

// Check is a single expectation and whether it held
type Check struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// EventLog captures one turn of an evaluation run
type EventLog struct {
	Timestamp time.Time     `json:"timestamp"`
	Input     string        `json:"input"`
	Reply     *agents.Reply `json:"reply,omitempty"`
	Duration  time.Duration `json:"duration"`
	Checks    []Check       `json:"checks,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// EvaluationResult is the scored outcome of a scenario run
type EvaluationResult struct {
	Model    string                 `json:"model"`
	Scenario string                 `json:"scenario"`
	Score    float64                `json:"score"`
	Passed   bool                   `json:"passed"`
	Duration time.Duration          `json:"duration"`
	Outcome  []Check                `json:"outcome"`
	Metrics  map[string]interface{} `json:"metrics"`
	Events   []EventLog             `json:"events,omitempty"`
}

// Failures lists the checks that did not hold
func (r *EvaluationResult) Failures() []Check {
	var failed []Check
	for _, e := range r.Events {
		for _, c := range e.Checks {
			if !c.Passed {
				failed = append(failed, c)
			}
		}
	}
	for _, c := range r.Outcome {
		if !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}
