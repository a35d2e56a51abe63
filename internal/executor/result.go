package executor

import (
	"time"

	"git.home.luguber.info/inful/conveyor/internal/plan"
)

// Status values for steps, jobs and runs.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusCanceled = "canceled"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration,omitempty"`
	Output     string        `json:"output,omitempty"` // tail of combined output
	Error      string        `json:"error,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty"`
}

// JobResult records the outcome of one matrix cell.
type JobResult struct {
	Label    string        `json:"label"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Steps    []StepResult  `json:"steps"`
}

// RunResult rolls up a complete run.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Workflow  string            `json:"workflow"`
	Trigger   plan.TriggerEvent `json:"trigger"`
	Outcome   string            `json:"outcome"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Jobs      []JobResult       `json:"jobs"`
}

// Failed reports whether any job failed.
func (r *RunResult) Failed() bool {
	for _, j := range r.Jobs {
		if j.Status == StatusFailed {
			return true
		}
	}
	return false
}

// outcome derives the run outcome from job statuses.
func (r *RunResult) outcome() string {
	outcome := StatusSuccess
	for _, j := range r.Jobs {
		switch j.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCanceled:
			outcome = StatusCanceled
		}
	}
	return outcome
}
