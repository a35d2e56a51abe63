// Package executor runs execution plans: matrix jobs in parallel on a small
// worker pool, steps strictly sequential within a job. A failing step aborts
// the rest of its job; sibling cells continue unless the matrix opted into
// fail-fast.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/conveyor/internal/cache"
	"git.home.luguber.info/inful/conveyor/internal/checkout"
	"git.home.luguber.info/inful/conveyor/internal/events"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/plan"
	"git.home.luguber.info/inful/conveyor/internal/workspace"
)

// Runner executes plans.
type Runner struct {
	workspace  *workspace.Manager
	cache      *cache.Cache
	checkout   *checkout.Client
	bus        *events.Bus
	recorder   metrics.Recorder
	sourceDir  string
	workers    int
	toolchains map[string]string
	useCache   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkspace sets the workspace manager.
func WithWorkspace(m *workspace.Manager) Option { return func(r *Runner) { r.workspace = m } }

// WithCache enables the dependency cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Runner) {
		r.cache = c
		r.useCache = c != nil
	}
}

// WithCheckout sets the checkout client.
func WithCheckout(c *checkout.Client) Option { return func(r *Runner) { r.checkout = c } }

// WithBus sets the event bus; nil disables event publishing.
func WithBus(b *events.Bus) Option { return func(r *Runner) { r.bus = b } }

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option { return func(r *Runner) { r.recorder = rec } }

// WithSourceDir sets the directory a bare checkout step resolves to.
func WithSourceDir(dir string) Option { return func(r *Runner) { r.sourceDir = dir } }

// WithWorkers caps concurrent matrix jobs.
func WithWorkers(n int) Option { return func(r *Runner) { r.workers = n } }

// WithToolchains sets the installer command templates for toolchain steps.
func WithToolchains(t map[string]string) Option { return func(r *Runner) { r.toolchains = t } }

// NewRunner creates a runner. Defaults: ephemeral workspace, no cache, no
// events, noop metrics, two job workers, current directory as source.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		workspace: workspace.NewManager(""),
		recorder:  metrics.NoopRecorder{},
		sourceDir: ".",
		workers:   2,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = 2
	}
	return r
}

// Execute runs every job of the plan and returns the rolled-up result.
// The returned error covers infrastructure failures only; step failures are
// reported through the result.
func (r *Runner) Execute(ctx context.Context, p *plan.Plan) (*RunResult, error) {
	runID := uuid.NewString()
	result := &RunResult{
		RunID:     runID,
		Workflow:  p.Workflow,
		Trigger:   p.Trigger,
		StartedAt: time.Now(),
		Jobs:      make([]JobResult, len(p.Jobs)),
	}

	slog.Info("run started",
		logfields.RunID(runID),
		logfields.Workflow(p.Workflow),
		logfields.Trigger(p.Trigger.Event),
		logfields.Branch(p.Trigger.Branch),
		slog.Int("jobs", len(p.Jobs)))
	r.publish(ctx, events.RunStarted{
		RunID:    runID,
		Workflow: p.Workflow,
		Trigger:  p.Trigger.Event,
		Branch:   p.Trigger.Branch,
		Jobs:     len(p.Jobs),
	})

	// Matrix-level fail-fast cancels sibling cells through this context.
	jobCtx, cancelSiblings := context.WithCancel(ctx)
	defer cancelSiblings()

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i := range p.Jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			jp := p.Jobs[idx]
			jr := r.runJob(jobCtx, runID, jp)
			result.Jobs[idx] = jr

			if jr.Status == StatusFailed && jp.FailFast {
				slog.Warn("fail-fast matrix, canceling remaining jobs", logfields.Job(jp.Label))
				cancelSiblings()
			}
		}(i)
	}
	wg.Wait()

	result.Duration = time.Since(result.StartedAt)
	result.Outcome = result.outcome()

	r.recorder.ObserveRunDuration(result.Duration)
	r.recorder.IncRunOutcome(result.Outcome)
	r.publish(ctx, events.RunFinished{
		RunID:      runID,
		Workflow:   p.Workflow,
		Outcome:    result.Outcome,
		DurationMS: float64(result.Duration.Milliseconds()),
	})
	slog.Info("run finished",
		logfields.RunID(runID),
		slog.String("outcome", result.Outcome),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))

	if result.Outcome == StatusSuccess {
		if err := r.workspace.Cleanup(runID); err != nil {
			slog.Warn("workspace cleanup failed", logfields.RunID(runID), logfields.Error(err))
		}
	}
	return result, nil
}

// runJob executes one matrix cell: steps strictly sequential, first failure
// aborts the remainder.
func (r *Runner) runJob(ctx context.Context, runID string, jp plan.JobPlan) JobResult {
	started := time.Now()
	jr := JobResult{Label: jp.Label, Status: StatusSuccess}

	slog.Info("job started", logfields.RunID(runID), logfields.Job(jp.Label), logfields.OS(jp.Cell.OS), logfields.Target(jp.Cell.Target))
	r.publish(ctx, events.JobStarted{RunID: runID, Job: jp.Label})

	dir, err := r.workspace.JobDir(runID, jp.Label)
	if err != nil {
		jr.Status = StatusFailed
		jr.Steps = append(jr.Steps, StepResult{Name: "workspace", Status: StatusFailed, Error: err.Error()})
		jr.Duration = time.Since(started)
		return jr
	}

	js := &jobState{cwd: dir, workdir: dir}
	for _, sp := range jp.Steps {
		label := sp.Step.Label()
		if sp.Skip {
			jr.Steps = append(jr.Steps, StepResult{Name: label, Status: StatusSkipped, SkipReason: sp.SkipReason})
			r.recorder.IncStepResult(label, metrics.ResultSkipped)
			r.publish(ctx, events.StepSkipped{RunID: runID, Job: jp.Label, Step: label, Reason: sp.SkipReason})
			continue
		}
		if ctx.Err() != nil {
			jr.Status = StatusCanceled
			jr.Steps = append(jr.Steps, StepResult{Name: label, Status: StatusCanceled})
			break
		}

		r.publish(ctx, events.StepStarted{RunID: runID, Job: jp.Label, Step: label})
		sr := r.runStep(ctx, js, jp, sp)
		jr.Steps = append(jr.Steps, sr)

		r.recorder.ObserveStepDuration(label, sr.Duration)
		status := metrics.ResultSuccess
		if sr.Status == StatusFailed {
			status = metrics.ResultFailed
		}
		r.recorder.IncStepResult(label, status)
		r.publish(ctx, events.StepFinished{
			RunID:      runID,
			Job:        jp.Label,
			Step:       label,
			Status:     sr.Status,
			DurationMS: float64(sr.Duration.Milliseconds()),
			Error:      sr.Error,
		})

		if sr.Status == StatusFailed {
			jr.Status = StatusFailed
			break
		}
	}

	// Save pending cache entries only for fully successful jobs.
	if jr.Status == StatusSuccess && r.useCache {
		for _, pending := range js.cacheSaves {
			if err := r.cache.Save(pending.key, js.cwd, pending.paths); err != nil {
				slog.Warn("cache save failed", logfields.Job(jp.Label), logfields.Error(err))
			}
		}
	}

	jr.Duration = time.Since(started)
	r.recorder.ObserveJobDuration(jp.Label, jr.Duration)
	jobStatus := metrics.ResultSuccess
	switch jr.Status {
	case StatusFailed:
		jobStatus = metrics.ResultFailed
	case StatusCanceled:
		jobStatus = metrics.ResultCanceled
	}
	r.recorder.IncJobResult(jobStatus)
	r.publish(ctx, events.JobFinished{
		RunID:      runID,
		Job:        jp.Label,
		Status:     jr.Status,
		DurationMS: float64(jr.Duration.Milliseconds()),
	})
	slog.Info("job finished", logfields.RunID(runID), logfields.Job(jp.Label), slog.String("status", jr.Status))
	return jr
}

func (r *Runner) publish(ctx context.Context, e events.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, e); err != nil {
		slog.Warn("event handler failed", "event", e.Name(), logfields.Error(err))
	}
}
