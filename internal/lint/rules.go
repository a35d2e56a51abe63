package lint

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/conveyor/internal/expr"
	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

// Rule validates one aspect of a workflow definition.
type Rule interface {
	Name() string
	Check(wf *workflow.Workflow) []Issue
}

// TriggerRule validates the `on` block: at least one trigger must exist and
// push triggers must name their branches.
type TriggerRule struct{}

func (r *TriggerRule) Name() string { return "trigger-declaration" }

func (r *TriggerRule) Check(wf *workflow.Workflow) []Issue {
	var issues []Issue
	if wf.On.Push == nil && wf.On.PullRequest == nil {
		issues = append(issues, Issue{
			Workflow: wf.Name,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "workflow declares no triggers",
			Fix:      "add an `on:` block with push and/or pull_request",
		})
		return issues
	}
	if wf.On.Push != nil && len(wf.On.Push.Branches) == 0 {
		issues = append(issues, Issue{
			Workflow: wf.Name,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "push trigger declares no branches",
			Fix:      "list the branches the push trigger should track",
		})
	}
	return issues
}

// MatrixConsistencyRule checks that every matrix cell pairs an OS label with a
// target triple for that OS: windows runners build msvc targets, linux runners
// build gnu targets, macos runners build apple targets.
type MatrixConsistencyRule struct{}

func (r *MatrixConsistencyRule) Name() string { return "matrix-target-consistency" }

// osFamilies maps an OS-label substring to the substring its target triple
// must contain.
var osFamilies = []struct {
	osSubstring     string
	targetSubstring string
}{
	{"windows", "-windows-msvc"},
	{"ubuntu", "-linux-gnu"},
	{"linux", "-linux-gnu"},
	{"macos", "-apple-darwin"},
	{"darwin", "-apple-darwin"},
}

func (r *MatrixConsistencyRule) Check(wf *workflow.Workflow) []Issue {
	var issues []Issue
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		for _, cell := range job.Strategy.Matrix.Include {
			if cell.OS == "" {
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName,
					Severity: SeverityError, Rule: r.Name(),
					Message: "matrix cell has no os label",
				})
				continue
			}
			if cell.Target == "" {
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName,
					Severity: SeverityError, Rule: r.Name(),
					Message: fmt.Sprintf("matrix cell %s has no target triple", cell.OS),
				})
				continue
			}
			for _, fam := range osFamilies {
				if !strings.Contains(cell.OS, fam.osSubstring) {
					continue
				}
				if !strings.Contains(cell.Target, fam.targetSubstring) {
					issues = append(issues, Issue{
						Workflow: wf.Name, Job: jobName,
						Severity: SeverityError, Rule: r.Name(),
						Message: fmt.Sprintf("os %s is inconsistent with target %s", cell.OS, cell.Target),
						Fix:     fmt.Sprintf("use a target containing %q for %s runners", fam.targetSubstring, fam.osSubstring),
					})
				}
				break
			}
		}
	}
	return issues
}

// StepShapeRule validates structural step invariants: exactly one of run/uses,
// known builtin kinds, unique step ids within a job.
type StepShapeRule struct{}

func (r *StepShapeRule) Name() string { return "step-shape" }

var builtinKinds = map[string]bool{
	workflow.UsesCheckout:  true,
	workflow.UsesToolchain: true,
	workflow.UsesCache:     true,
}

func (r *StepShapeRule) Check(wf *workflow.Workflow) []Issue {
	var issues []Issue
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		seenIDs := make(map[string]bool)
		for _, step := range job.Steps {
			label := step.Label()
			switch {
			case step.Run == "" && step.Uses == "":
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName, Step: label,
					Severity: SeverityError, Rule: r.Name(),
					Message: "step declares neither run nor uses",
				})
			case step.Run != "" && step.Uses != "":
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName, Step: label,
					Severity: SeverityError, Rule: r.Name(),
					Message: "step declares both run and uses",
				})
			case step.Uses != "" && !builtinKinds[step.Uses]:
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName, Step: label,
					Severity: SeverityError, Rule: r.Name(),
					Message: fmt.Sprintf("unknown builtin step kind %q", step.Uses),
				})
			}
			if step.ID != "" {
				if seenIDs[step.ID] {
					issues = append(issues, Issue{
						Workflow: wf.Name, Job: jobName, Step: label,
						Severity: SeverityError, Rule: r.Name(),
						Message: fmt.Sprintf("duplicate step id %q", step.ID),
					})
				}
				seenIDs[step.ID] = true
			}
		}
	}
	return issues
}

// ConditionRule validates that every `if` expression parses and references
// only known context identifiers.
type ConditionRule struct{}

func (r *ConditionRule) Name() string { return "step-condition" }

func (r *ConditionRule) Check(wf *workflow.Workflow) []Issue {
	known := make(map[string]bool)
	for _, k := range workflow.KnownContextKeys() {
		known[k] = true
	}
	var issues []Issue
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		for _, step := range job.Steps {
			if step.If == "" {
				continue
			}
			node, err := expr.Parse(step.If)
			if err != nil {
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName, Step: step.Label(),
					Severity: SeverityError, Rule: r.Name(),
					Message: fmt.Sprintf("condition does not parse: %v", err),
				})
				continue
			}
			for _, id := range expr.Identifiers(node) {
				if !known[id] {
					issues = append(issues, Issue{
						Workflow: wf.Name, Job: jobName, Step: step.Label(),
						Severity: SeverityError, Rule: r.Name(),
						Message: fmt.Sprintf("condition references unknown identifier %q", id),
						Fix:     "use matrix.os, matrix.target, trigger.event or trigger.branch",
					})
				}
			}
		}
	}
	return issues
}

// CacheKeyRule requires cache steps to name at least one lockfile as the key
// source; without one the cache key would be unstable.
type CacheKeyRule struct{}

func (r *CacheKeyRule) Name() string { return "cache-key-files" }

func (r *CacheKeyRule) Check(wf *workflow.Workflow) []Issue {
	var issues []Issue
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		for _, step := range job.Steps {
			if step.Uses != workflow.UsesCache {
				continue
			}
			if strings.TrimSpace(step.With["key-files"]) == "" {
				issues = append(issues, Issue{
					Workflow: wf.Name, Job: jobName, Step: step.Label(),
					Severity: SeverityError, Rule: r.Name(),
					Message: "cache step names no key-files",
					Fix:     "set with.key-files to the dependency lockfile(s)",
				})
			}
		}
	}
	return issues
}

// DisabledStepRule surfaces disabled steps as informational issues so the
// verification gap stays visible in every validation run.
type DisabledStepRule struct{}

func (r *DisabledStepRule) Name() string { return "disabled-step" }

func (r *DisabledStepRule) Check(wf *workflow.Workflow) []Issue {
	var issues []Issue
	for _, jobName := range wf.JobNames() {
		job := wf.Jobs[jobName]
		for _, step := range job.Steps {
			if step.Disabled == "" {
				continue
			}
			issues = append(issues, Issue{
				Workflow: wf.Name, Job: jobName, Step: step.Label(),
				Severity: SeverityInfo, Rule: r.Name(),
				Message: fmt.Sprintf("step is disabled: %s", step.Disabled),
			})
		}
	}
	return issues
}
