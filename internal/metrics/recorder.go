// Package metrics provides observability hooks for run, job and step metrics.
// The default NoopRecorder lets every component take a Recorder without nil
// checks; the prometheus implementation is swapped in when metrics are
// enabled in the runner configuration.
package metrics

import "time"

// ResultLabel enumerates step/job result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultSkipped  ResultLabel = "skipped"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for run and step metrics. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil
// receivers when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	ObserveJobDuration(job string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncJobResult(result ResultLabel)
	IncRunOutcome(outcome string) // outcome: success|failed|canceled
	SetQueueDepth(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) ObserveJobDuration(string, time.Duration)  {}
func (NoopRecorder) ObserveRunDuration(time.Duration)          {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncJobResult(ResultLabel)                  {}
func (NoopRecorder) IncRunOutcome(string)                      {}
func (NoopRecorder) SetQueueDepth(int)                         {}
