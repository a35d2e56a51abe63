package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/conveyor/internal/executor"
	"git.home.luguber.info/inful/conveyor/internal/plan"
)

func sampleResult() *executor.RunResult {
	return &executor.RunResult{
		RunID:     "run-123",
		Workflow:  "CI",
		Trigger:   plan.TriggerEvent{Event: plan.EventPush, Branch: "main"},
		Outcome:   executor.StatusFailed,
		StartedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Jobs: []executor.JobResult{
			{
				Label:  "build (ubuntu-latest/x86_64-unknown-linux-gnu)",
				Status: executor.StatusFailed,
				Steps: []executor.StepResult{
					{Name: "checkout", Status: executor.StatusSuccess, Duration: time.Second},
					{Name: "clippy", Status: executor.StatusFailed, Error: "command failed: exit status 1"},
				},
			},
			{
				Label:  "build (windows-latest/x86_64-pc-windows-msvc)",
				Status: executor.StatusSuccess,
				Steps: []executor.StepResult{
					{Name: "checkout", Status: executor.StatusSuccess, Duration: time.Second},
					{Name: "fmt", Status: executor.StatusSkipped, SkipReason: "condition not met: contains(matrix.os, 'ubuntu')"},
					{Name: "test", Status: executor.StatusSkipped, SkipReason: "disabled: runner lacks an NVIDIA GPU"},
				},
			},
		},
	}
}

func TestMarkdownSummary(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "# ❌ CI run failed")
	assert.Contains(t, md, "**Run ID:** `run-123`")
	assert.Contains(t, md, "## ❌ build (ubuntu-latest/x86_64-unknown-linux-gnu)")
	assert.Contains(t, md, "## ✅ build (windows-latest/x86_64-pc-windows-msvc)")
	assert.Contains(t, md, "command failed: exit status 1")
	assert.Contains(t, md, "disabled: runner lacks an NVIDIA GPU")
	assert.Contains(t, md, "condition not met: contains(matrix.os, 'ubuntu')")
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	r := &executor.RunResult{
		Workflow: "CI",
		Outcome:  executor.StatusFailed,
		Jobs: []executor.JobResult{{
			Label:  "build",
			Status: executor.StatusFailed,
			Steps: []executor.StepResult{{
				Name:   "weird | step",
				Status: executor.StatusFailed,
				Error:  "line one\nline two",
			}},
		}},
	}
	md := Markdown(r)
	assert.Contains(t, md, `weird \| step`)
	assert.Contains(t, md, "line one line two")
}

func TestHTMLIsWellFormed(t *testing.T) {
	page, err := HTML(sampleResult())
	require.NoError(t, err)

	doc, err := html.Parse(bytes.NewReader(page))
	require.NoError(t, err)

	// Count rendered table rows across both job tables.
	var rows int
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr":
				rows++
			case "title":
				if n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	assert.Equal(t, "CI run run-123", title)
	// Two header rows plus five step rows.
	assert.Equal(t, 7, rows)
	assert.True(t, strings.Contains(string(page), "runner lacks an NVIDIA GPU"))
}
