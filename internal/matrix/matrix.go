// Package matrix expands a job's strategy matrix into independent cells.
package matrix

import (
	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

// Expand returns the cells a job instantiates. A job without a matrix still
// runs once, as a single unlabeled cell.
func Expand(job workflow.Job) []workflow.Cell {
	if len(job.Strategy.Matrix.Include) == 0 {
		return []workflow.Cell{{}}
	}
	cells := make([]workflow.Cell, len(job.Strategy.Matrix.Include))
	copy(cells, job.Strategy.Matrix.Include)
	return cells
}

// Labels returns the canonical label of every cell, in matrix order.
func Labels(job workflow.Job) []string {
	cells := Expand(job)
	labels := make([]string, len(cells))
	for i, c := range cells {
		labels[i] = c.Label()
	}
	return labels
}
