// Package report renders run results as Markdown summaries and HTML pages.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/conveyor/internal/executor"
)

// statusMarks maps result statuses to the glyph shown in summaries.
var statusMarks = map[string]string{
	executor.StatusSuccess:  "✅",
	executor.StatusFailed:   "❌",
	executor.StatusSkipped:  "⏭",
	executor.StatusCanceled: "🚫",
}

func mark(status string) string {
	if m, ok := statusMarks[status]; ok {
		return m
	}
	return "•"
}

// Markdown renders a run result as a Markdown summary: one section per job
// with a step table, skipped steps carrying their reason.
func Markdown(r *executor.RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s %s run %s\n\n", mark(r.Outcome), r.Workflow, r.Outcome)
	fmt.Fprintf(&b, "- **Trigger:** %s", r.Trigger.Event)
	if r.Trigger.Branch != "" {
		fmt.Fprintf(&b, " on `%s`", r.Trigger.Branch)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Run ID:** `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Duration:** %s\n\n", r.Duration.Round(time.Millisecond))

	for _, jr := range r.Jobs {
		fmt.Fprintf(&b, "## %s %s\n\n", mark(jr.Status), jr.Label)
		b.WriteString("| Step | Status | Duration | Detail |\n")
		b.WriteString("|------|--------|----------|--------|\n")
		for _, sr := range jr.Steps {
			detail := sr.SkipReason
			if sr.Error != "" {
				detail = sr.Error
			}
			fmt.Fprintf(&b, "| %s | %s %s | %s | %s |\n",
				cell(sr.Name), mark(sr.Status), sr.Status,
				sr.Duration.Round(time.Millisecond), cell(detail))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// cell escapes pipes so step names and errors cannot break the table.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "\\|")
}

// HTML renders the Markdown summary into a standalone HTML page.
func HTML(r *executor.RunResult) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(r)), &body); err != nil {
		return nil, fmt.Errorf("render run report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s run %s</title>\n", r.Workflow, r.RunID)
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
