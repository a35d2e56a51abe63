// Package lint validates workflow definitions against the structural rules a
// run depends on: trigger declarations, matrix/target consistency, step
// shape, condition expressions and cache keys.
package lint

import (
	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

// Linter runs an ordered rule set over workflow definitions.
type Linter struct {
	rules []Rule
}

// NewLinter creates a linter with the default rule set.
func NewLinter() *Linter {
	return &Linter{
		rules: []Rule{
			&TriggerRule{},
			&MatrixConsistencyRule{},
			&StepShapeRule{},
			&ConditionRule{},
			&CacheKeyRule{},
			&DisabledStepRule{},
		},
	}
}

// Check validates a single workflow.
func (l *Linter) Check(wf *workflow.Workflow) *Result {
	result := &Result{}
	for _, rule := range l.rules {
		result.Issues = append(result.Issues, rule.Check(wf)...)
	}
	return result
}

// CheckAll validates a set of workflows and merges the results.
func (l *Linter) CheckAll(flows []*workflow.Workflow) *Result {
	result := &Result{}
	for _, wf := range flows {
		result.Issues = append(result.Issues, l.Check(wf).Issues...)
	}
	return result
}
