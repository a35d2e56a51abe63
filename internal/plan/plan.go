// Package plan turns a workflow definition and a trigger event into an
// immutable execution plan: one job per matrix cell, each with its resolved
// environment and the steps the trigger actually selects.
package plan

import (
	"fmt"

	"git.home.luguber.info/inful/conveyor/internal/expr"
	"git.home.luguber.info/inful/conveyor/internal/matrix"
	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

// Trigger event kinds.
const (
	EventPush        = "push"
	EventPullRequest = "pull_request"
	EventSchedule    = "schedule"
	EventManual      = "manual"
)

// TriggerEvent identifies what caused a run.
type TriggerEvent struct {
	Event  string
	Branch string
}

// Matches reports whether the event selects the workflow. Schedule and manual
// events always match; push matches only tracked branches.
func Matches(wf *workflow.Workflow, ev TriggerEvent) bool {
	switch ev.Event {
	case EventPush:
		if wf.On.Push == nil {
			return false
		}
		for _, b := range wf.On.Push.Branches {
			if b == ev.Branch {
				return true
			}
		}
		return false
	case EventPullRequest:
		return wf.On.PullRequest != nil
	case EventSchedule, EventManual:
		return true
	}
	return false
}

// Plan is an immutable execution plan derived from a workflow and a trigger.
type Plan struct {
	Workflow string
	Trigger  TriggerEvent
	Jobs     []JobPlan
}

// JobPlan is the planned execution of one matrix cell.
type JobPlan struct {
	Job      string // job key in the workflow document
	Label    string // job key plus cell label, unique within the plan
	Cell     workflow.Cell
	FailFast bool // matrix-level fail-fast (cancels sibling cells)
	Env      map[string]string
	Steps    []StepPlan
}

// StepPlan is one planned step, possibly skipped with a recorded reason.
type StepPlan struct {
	Step       workflow.Step
	Skip       bool
	SkipReason string
}

// Selected returns the steps that will actually execute.
func (jp JobPlan) Selected() []StepPlan {
	var out []StepPlan
	for _, sp := range jp.Steps {
		if !sp.Skip {
			out = append(out, sp)
		}
	}
	return out
}

// Builder constructs a Plan for one workflow and trigger.
type Builder struct {
	wf      *workflow.Workflow
	trigger TriggerEvent
}

// NewBuilder creates a builder with the base workflow.
func NewBuilder(wf *workflow.Workflow) *Builder {
	return &Builder{wf: wf}
}

// WithTrigger sets the triggering event.
func (b *Builder) WithTrigger(ev TriggerEvent) *Builder {
	b.trigger = ev
	return b
}

// Build resolves the plan. It fails if the trigger does not select the
// workflow or a step condition cannot be evaluated.
func (b *Builder) Build() (*Plan, error) {
	if !Matches(b.wf, b.trigger) {
		return nil, fmt.Errorf("trigger %s/%s does not select workflow %q", b.trigger.Event, b.trigger.Branch, b.wf.Name)
	}
	p := &Plan{Workflow: b.wf.Name, Trigger: b.trigger}
	for _, jobName := range b.wf.JobNames() {
		job := b.wf.Jobs[jobName]
		for _, cell := range matrix.Expand(job) {
			jp, err := b.planCell(jobName, job, cell)
			if err != nil {
				return nil, err
			}
			p.Jobs = append(p.Jobs, jp)
		}
	}
	return p, nil
}

func (b *Builder) planCell(jobName string, job workflow.Job, cell workflow.Cell) (JobPlan, error) {
	label := jobName
	if cl := cell.Label(); cl != "" {
		label = jobName + " (" + cl + ")"
	}
	jp := JobPlan{
		Job:      jobName,
		Label:    label,
		Cell:     cell,
		FailFast: job.Strategy.FailFastEnabled(),
		Env:      mergeEnv(nil, b.wf.Env),
	}
	ctx := expr.Context{
		workflow.CtxMatrixOS:      cell.OS,
		workflow.CtxMatrixTarget:  cell.Target,
		workflow.CtxTriggerEvent:  b.trigger.Event,
		workflow.CtxTriggerBranch: b.trigger.Branch,
	}
	for _, step := range job.Steps {
		sp := StepPlan{Step: step}
		switch {
		case step.Disabled != "":
			sp.Skip = true
			sp.SkipReason = "disabled: " + step.Disabled
		case step.If != "":
			ok, err := expr.Eval(step.If, ctx)
			if err != nil {
				return JobPlan{}, fmt.Errorf("job %s step %s: %w", jobName, step.Label(), err)
			}
			if !ok {
				sp.Skip = true
				sp.SkipReason = "condition not met: " + step.If
			}
		}
		jp.Steps = append(jp.Steps, sp)
	}
	return jp, nil
}

// mergeEnv overlays src maps left to right onto a fresh map.
func mergeEnv(dst map[string]string, src ...map[string]string) map[string]string {
	out := make(map[string]string, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for _, m := range src {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// StepEnv resolves the effective environment for one planned step.
func (jp JobPlan) StepEnv(sp StepPlan) map[string]string {
	return mergeEnv(jp.Env, sp.Step.Env)
}
