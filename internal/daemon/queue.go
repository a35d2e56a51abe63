package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/plan"
)

// RunKind says what put a job on the queue.
type RunKind string

const (
	KindManual    RunKind = "manual"    // API- or CLI-triggered
	KindScheduled RunKind = "scheduled" // periodic trigger
	KindWatch     RunKind = "watch"     // workflow file changed
)

// JobStatus is the queue-level lifecycle of one run job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// RunJob is one queued workflow run.
type RunJob struct {
	ID          string            `json:"id"`
	Workflow    string            `json:"workflow"` // workflow file path
	Kind        RunKind           `json:"kind"`
	Trigger     plan.TriggerEvent `json:"trigger"`
	Status      JobStatus         `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Duration    time.Duration     `json:"duration,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
	Error       string            `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Executor runs a queued job to completion.
type Executor interface {
	ExecuteJob(ctx context.Context, job *RunJob) (outcome string, err error)
}

// RunQueue feeds queued workflow runs to a fixed worker group.
type RunQueue struct {
	jobs        chan *RunJob
	workers     int
	maxSize     int
	mu          sync.RWMutex
	active      map[string]*RunJob
	history     []*RunJob
	historySize int
	wg          sync.WaitGroup
	executor    Executor
	recorder    metrics.Recorder
}

// NewRunQueue creates a queue with the given capacity and worker count.
func NewRunQueue(maxSize, workers int, executor Executor, recorder metrics.Recorder) *RunQueue {
	if maxSize <= 0 {
		maxSize = 64
	}
	if workers <= 0 {
		workers = 2
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &RunQueue{
		jobs:        make(chan *RunJob, maxSize),
		workers:     workers,
		maxSize:     maxSize,
		active:      make(map[string]*RunJob),
		historySize: 50,
		executor:    executor,
		recorder:    recorder,
	}
}

// Start launches the worker group. Workers exit when ctx is canceled.
func (q *RunQueue) Start(ctx context.Context) {
	slog.Info("starting run queue", slog.Int("workers", q.workers), slog.Int("max_size", q.maxSize))
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, fmt.Sprintf("worker-%d", i))
	}
}

// Stop cancels active jobs and waits for the workers to drain.
func (q *RunQueue) Stop() {
	slog.Info("stopping run queue")
	q.mu.Lock()
	for _, job := range q.active {
		if job.cancel != nil {
			job.cancel()
		}
	}
	q.mu.Unlock()
	q.wg.Wait()
	slog.Info("run queue stopped")
}

// Enqueue adds a job; full queues reject rather than block.
func (q *RunQueue) Enqueue(job *RunJob) error {
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	job.Status = JobQueued
	select {
	case q.jobs <- job:
		q.recorder.SetQueueDepth(len(q.jobs))
		slog.Info("run enqueued",
			slog.String("job_id", job.ID),
			logfields.Workflow(job.Workflow),
			slog.String("kind", string(job.Kind)))
		return nil
	default:
		return fmt.Errorf("run queue is full")
	}
}

// Length returns the number of queued jobs.
func (q *RunQueue) Length() int { return len(q.jobs) }

// ActiveCount returns the number of jobs currently executing.
func (q *RunQueue) ActiveCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.active)
}

// History returns completed jobs, most recent last.
func (q *RunQueue) History() []*RunJob {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*RunJob, len(q.history))
	copy(out, q.history)
	return out
}

func (q *RunQueue) worker(ctx context.Context, name string) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.recorder.SetQueueDepth(len(q.jobs))
			q.process(ctx, name, job)
		}
	}
}

func (q *RunQueue) process(ctx context.Context, worker string, job *RunJob) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	now := time.Now()
	job.Status = JobRunning
	job.StartedAt = &now
	job.cancel = cancel

	q.mu.Lock()
	q.active[job.ID] = job
	q.mu.Unlock()

	slog.Info("run job started",
		logfields.Worker(worker),
		slog.String("job_id", job.ID),
		logfields.Workflow(job.Workflow))

	outcome, err := q.executor.ExecuteJob(jobCtx, job)

	completed := time.Now()
	job.CompletedAt = &completed
	job.Duration = completed.Sub(now)
	job.Outcome = outcome
	job.cancel = nil
	switch {
	case jobCtx.Err() != nil:
		job.Status = JobCancelled
	case err != nil:
		job.Status = JobFailed
		job.Error = err.Error()
	default:
		job.Status = JobCompleted
	}

	q.mu.Lock()
	delete(q.active, job.ID)
	q.history = append(q.history, job)
	if len(q.history) > q.historySize {
		q.history = q.history[len(q.history)-q.historySize:]
	}
	q.mu.Unlock()

	if err != nil {
		slog.Error("run job failed",
			logfields.Worker(worker),
			slog.String("job_id", job.ID),
			logfields.Error(err))
		return
	}
	slog.Info("run job finished",
		logfields.Worker(worker),
		slog.String("job_id", job.ID),
		slog.String("outcome", outcome),
		logfields.DurationMS(float64(job.Duration.Milliseconds())))
}
