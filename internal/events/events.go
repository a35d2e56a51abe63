// Package events defines the run domain events and a synchronous bus for
// delivering them to handlers (run store, metrics, NATS mirror).
package events

// Event is a domain event published while a run executes.
type Event interface {
	Name() string
	GetRunID() string
}

// Event names used in the run lifecycle.
const (
	EventRunStarted   = "RunStarted"
	EventJobStarted   = "JobStarted"
	EventStepStarted  = "StepStarted"
	EventStepFinished = "StepFinished"
	EventStepSkipped  = "StepSkipped"
	EventJobFinished  = "JobFinished"
	EventRunFinished  = "RunFinished"
)

// RunStarted signals the start of a run.
type RunStarted struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Trigger  string `json:"trigger"`
	Branch   string `json:"branch,omitempty"`
	Jobs     int    `json:"jobs"`
}

func (e RunStarted) Name() string     { return EventRunStarted }
func (e RunStarted) GetRunID() string { return e.RunID }

// JobStarted signals one matrix cell starting.
type JobStarted struct {
	RunID string `json:"run_id"`
	Job   string `json:"job"`
}

func (e JobStarted) Name() string     { return EventJobStarted }
func (e JobStarted) GetRunID() string { return e.RunID }

// StepStarted signals a step starting within a job.
type StepStarted struct {
	RunID string `json:"run_id"`
	Job   string `json:"job"`
	Step  string `json:"step"`
}

func (e StepStarted) Name() string     { return EventStepStarted }
func (e StepStarted) GetRunID() string { return e.RunID }

// StepFinished records the outcome of one executed step.
type StepFinished struct {
	RunID      string  `json:"run_id"`
	Job        string  `json:"job"`
	Step       string  `json:"step"`
	Status     string  `json:"status"` // success|failed
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

func (e StepFinished) Name() string     { return EventStepFinished }
func (e StepFinished) GetRunID() string { return e.RunID }

// StepSkipped records a step the plan left out, with the reason.
type StepSkipped struct {
	RunID  string `json:"run_id"`
	Job    string `json:"job"`
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

func (e StepSkipped) Name() string     { return EventStepSkipped }
func (e StepSkipped) GetRunID() string { return e.RunID }

// JobFinished records the outcome of one matrix cell.
type JobFinished struct {
	RunID      string  `json:"run_id"`
	Job        string  `json:"job"`
	Status     string  `json:"status"` // success|failed|canceled
	DurationMS float64 `json:"duration_ms"`
}

func (e JobFinished) Name() string     { return EventJobFinished }
func (e JobFinished) GetRunID() string { return e.RunID }

// RunFinished records the overall outcome of a run.
type RunFinished struct {
	RunID      string  `json:"run_id"`
	Workflow   string  `json:"workflow"`
	Outcome    string  `json:"outcome"` // success|failed|canceled
	DurationMS float64 `json:"duration_ms"`
}

func (e RunFinished) Name() string     { return EventRunFinished }
func (e RunFinished) GetRunID() string { return e.RunID }
