package lint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

func parseWorkflow(t *testing.T, src string) *workflow.Workflow {
	t.Helper()
	wf, err := workflow.Parse([]byte(src))
	require.NoError(t, err)
	return wf
}

const validWorkflow = `
name: gpu-build
on:
  push:
    branches: [main]
  pull_request: {}
jobs:
  build:
    strategy:
      fail-fast: false
      matrix:
        include:
          - os: ubuntu-latest
            target: x86_64-unknown-linux-gnu
          - os: windows-latest
            target: x86_64-pc-windows-msvc
    steps:
      - uses: checkout
      - uses: cache
        with:
          key-files: Cargo.lock
      - id: fmt
        if: contains(matrix.os, 'ubuntu')
        run: cargo fmt --all -- --check
      - id: build
        run: cargo build --workspace
      - id: test
        run: cargo test --workspace
        disabled: runner lacks an NVIDIA GPU
`

func TestValidWorkflowHasNoErrors(t *testing.T) {
	result := NewLinter().Check(parseWorkflow(t, validWorkflow))
	assert.False(t, result.HasErrors(), "unexpected errors: %+v", result.Errors())
	// The disabled test step surfaces as an informational issue.
	require.Len(t, result.Issues, 1)
	assert.Equal(t, SeverityInfo, result.Issues[0].Severity)
	assert.Equal(t, "disabled-step", result.Issues[0].Rule)
	assert.Contains(t, result.Issues[0].Message, "NVIDIA GPU")
}

func TestMatrixConsistency(t *testing.T) {
	wf := parseWorkflow(t, `
name: mixed-up
on:
  push:
    branches: [main]
jobs:
  build:
    strategy:
      matrix:
        include:
          - os: windows-latest
            target: x86_64-unknown-linux-gnu
    steps:
      - run: cargo build
`)
	result := NewLinter().Check(wf)
	require.True(t, result.HasErrors())
	found := false
	for _, issue := range result.Errors() {
		if issue.Rule == "matrix-target-consistency" {
			found = true
			assert.Contains(t, issue.Message, "windows-latest")
			assert.Contains(t, issue.Message, "x86_64-unknown-linux-gnu")
		}
	}
	assert.True(t, found, "expected matrix-target-consistency error")
}

func TestMissingTargetAndOS(t *testing.T) {
	wf := parseWorkflow(t, `
name: holes
on:
  push:
    branches: [main]
jobs:
  build:
    strategy:
      matrix:
        include:
          - os: ubuntu-latest
            target: ""
          - os: ""
            target: x86_64-unknown-linux-gnu
    steps:
      - run: cargo build
`)
	result := NewLinter().Check(wf)
	assert.Len(t, result.Errors(), 2)
}

func TestTriggerRules(t *testing.T) {
	noTriggers := parseWorkflow(t, `
name: silent
on: {}
jobs:
  build:
    steps:
      - run: cargo build
`)
	result := NewLinter().Check(noTriggers)
	require.True(t, result.HasErrors())
	assert.Equal(t, "trigger-declaration", result.Errors()[0].Rule)

	pushNoBranches := parseWorkflow(t, `
name: vague
on:
  push: {}
jobs:
  build:
    steps:
      - run: cargo build
`)
	result = NewLinter().Check(pushNoBranches)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors()[0].Message, "no branches")
}

func TestStepShapeRules(t *testing.T) {
	wf := parseWorkflow(t, `
name: malformed
on:
  push:
    branches: [main]
jobs:
  build:
    steps:
      - name: empty
      - name: both
        uses: checkout
        run: git clone
      - uses: teleport
      - id: dup
        run: "true"
      - id: dup
        run: "true"
`)
	result := NewLinter().Check(wf)
	rules := make(map[string]int)
	for _, issue := range result.Errors() {
		rules[issue.Rule]++
	}
	assert.Equal(t, 4, rules["step-shape"], "expected empty, both, unknown-builtin and duplicate-id errors: %+v", result.Errors())
}

func TestConditionRules(t *testing.T) {
	wf := parseWorkflow(t, `
name: conditions
on:
  push:
    branches: [main]
jobs:
  build:
    steps:
      - id: bad-syntax
        if: "contains(matrix.os"
        run: "true"
      - id: bad-ident
        if: "contains(runner.arch, 'x64')"
        run: "true"
      - id: good
        if: "contains(matrix.os, 'ubuntu') && trigger.event == 'push'"
        run: "true"
`)
	result := NewLinter().Check(wf)
	errs := result.Errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "does not parse")
	assert.Contains(t, errs[1].Message, "runner.arch")
}

func TestCacheKeyRule(t *testing.T) {
	wf := parseWorkflow(t, `
name: cachey
on:
  push:
    branches: [main]
jobs:
  build:
    steps:
      - uses: cache
        with:
          paths: target
`)
	result := NewLinter().Check(wf)
	require.True(t, result.HasErrors())
	assert.Equal(t, "cache-key-files", result.Errors()[0].Rule)
}

func TestCheckAllMergesResults(t *testing.T) {
	a := parseWorkflow(t, validWorkflow)
	b := parseWorkflow(t, `
name: silent
on: {}
jobs:
  build:
    steps:
      - run: cargo build
`)
	result := NewLinter().CheckAll([]*workflow.Workflow{a, b})
	assert.True(t, result.HasErrors())
	assert.GreaterOrEqual(t, len(result.Issues), 2)
}
