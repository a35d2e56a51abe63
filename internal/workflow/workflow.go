// Package workflow defines the declarative workflow document: triggers,
// environment, a build matrix and an ordered step list per job.
package workflow

// Workflow is one parsed workflow definition file.
type Workflow struct {
	Name string            `yaml:"name"`
	On   Triggers          `yaml:"on"`
	Env  map[string]string `yaml:"env,omitempty"`
	Jobs map[string]Job    `yaml:"jobs"`

	// Source records the file the workflow was loaded from; not part of the
	// document itself.
	Source string `yaml:"-"`
}

// Triggers declares which events select this workflow.
type Triggers struct {
	Push        *PushTrigger        `yaml:"push,omitempty"`
	PullRequest *PullRequestTrigger `yaml:"pull_request,omitempty"`
}

// PushTrigger limits push events to a set of branches.
type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
}

// PullRequestTrigger selects all pull request events. Presence is what matters.
type PullRequestTrigger struct{}

// Job is a named step sequence expanded over the strategy matrix.
type Job struct {
	Name     string   `yaml:"name,omitempty"`
	Strategy Strategy `yaml:"strategy,omitempty"`
	Steps    []Step   `yaml:"steps"`
}

// Strategy carries the matrix and the matrix-level fail-fast flag.
type Strategy struct {
	FailFast *bool  `yaml:"fail-fast,omitempty"`
	Matrix   Matrix `yaml:"matrix,omitempty"`
}

// FailFastEnabled reports the effective fail-fast setting. The default is
// false: one failing matrix cell never cancels the others.
func (s Strategy) FailFastEnabled() bool {
	if s.FailFast == nil {
		return false
	}
	return *s.FailFast
}

// Matrix is the set of cells a job expands into.
type Matrix struct {
	Include []Cell `yaml:"include,omitempty"`
}

// Cell is one (os, target triple) combination.
type Cell struct {
	OS     string `yaml:"os"`
	Target string `yaml:"target"`
}

// Label returns the canonical "os/target" identifier for the cell.
func (c Cell) Label() string {
	if c.Target == "" {
		return c.OS
	}
	return c.OS + "/" + c.Target
}

// Context keys resolvable inside step `if` expressions.
const (
	CtxMatrixOS      = "matrix.os"
	CtxMatrixTarget  = "matrix.target"
	CtxTriggerEvent  = "trigger.event"
	CtxTriggerBranch = "trigger.branch"
)

// KnownContextKeys lists every identifier a condition may reference.
func KnownContextKeys() []string {
	return []string{CtxMatrixOS, CtxMatrixTarget, CtxTriggerEvent, CtxTriggerBranch}
}

// Builtin step kinds accepted in `uses`.
const (
	UsesCheckout  = "checkout"
	UsesToolchain = "toolchain"
	UsesCache     = "cache"
)

// Step is one unit of work within a job. Exactly one of Run or Uses is set.
type Step struct {
	Name    string            `yaml:"name,omitempty"`
	ID      string            `yaml:"id,omitempty"`
	Uses    string            `yaml:"uses,omitempty"`
	Run     string            `yaml:"run,omitempty"`
	Shell   string            `yaml:"shell,omitempty"`
	If      string            `yaml:"if,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
	With    map[string]string `yaml:"with,omitempty"`
	Timeout string            `yaml:"timeout,omitempty"`

	// Disabled carries a human-readable reason for a step that stays in the
	// file but is never planned. Used to record verification gaps (a test
	// phase that needs hardware the runner lacks) without losing them.
	Disabled string `yaml:"disabled,omitempty"`
}

// Label returns the best display name for the step.
func (s Step) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if s.ID != "" {
		return s.ID
	}
	if s.Uses != "" {
		return s.Uses
	}
	return s.Run
}

// IsBuiltin reports whether the step dispatches to a builtin runner.
func (s Step) IsBuiltin() bool { return s.Uses != "" }
