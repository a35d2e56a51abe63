package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

func TestExpandWithoutMatrixRunsOnce(t *testing.T) {
	cells := Expand(workflow.Job{})
	assert.Len(t, cells, 1)
	assert.Equal(t, "", cells[0].Label())
}

func TestExpandIncludeCells(t *testing.T) {
	job := workflow.Job{
		Strategy: workflow.Strategy{
			Matrix: workflow.Matrix{Include: []workflow.Cell{
				{OS: "ubuntu-latest", Target: "x86_64-unknown-linux-gnu"},
				{OS: "windows-latest", Target: "x86_64-pc-windows-msvc"},
			}},
		},
	}
	labels := Labels(job)
	assert.Equal(t, []string{
		"ubuntu-latest/x86_64-unknown-linux-gnu",
		"windows-latest/x86_64-pc-windows-msvc",
	}, labels)
}

func TestExpandCopiesCells(t *testing.T) {
	job := workflow.Job{
		Strategy: workflow.Strategy{
			Matrix: workflow.Matrix{Include: []workflow.Cell{{OS: "ubuntu-latest", Target: "x86_64-unknown-linux-gnu"}}},
		},
	}
	cells := Expand(job)
	cells[0].OS = "mutated"
	assert.Equal(t, "ubuntu-latest", job.Strategy.Matrix.Include[0].OS)
}
