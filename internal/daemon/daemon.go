// Package daemon runs conveyor in continuous mode: a run queue fed by
// schedules, workflow file changes and the HTTP trigger API, with run history
// projected from the event store.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/conveyor/internal/cache"
	"git.home.luguber.info/inful/conveyor/internal/checkout"
	"git.home.luguber.info/inful/conveyor/internal/config"
	cverrors "git.home.luguber.info/inful/conveyor/internal/errors"
	"git.home.luguber.info/inful/conveyor/internal/events"
	"git.home.luguber.info/inful/conveyor/internal/executor"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/metrics"
	"git.home.luguber.info/inful/conveyor/internal/natspub"
	"git.home.luguber.info/inful/conveyor/internal/plan"
	"git.home.luguber.info/inful/conveyor/internal/runstore"
	"git.home.luguber.info/inful/conveyor/internal/workflow"
	"git.home.luguber.info/inful/conveyor/internal/workspace"
)

// Status is the daemon state reported by the HTTP API.
type Status struct {
	StartedAt  time.Time `json:"started_at"`
	Uptime     string    `json:"uptime"`
	Workers    int       `json:"workers"`
	QueueDepth int       `json:"queue_depth"`
	ActiveRuns int       `json:"active_runs"`
	Watching   bool      `json:"watching"`
	Schedules  int       `json:"schedules"`
}

// Daemon glues the queue, scheduler, watcher, event store and status server
// into one long-running process.
type Daemon struct {
	cfg        *config.Config
	queue      *RunQueue
	scheduler  *Scheduler
	watcher    *WorkflowWatcher
	server     *HTTPServer
	store      *runstore.SQLiteStore
	projection *runstore.HistoryProjection
	bus        *events.Bus
	runner     *executor.Runner
	publisher  *natspub.Publisher
	recorder   metrics.Recorder
	startTime  time.Time
}

// New wires a daemon from configuration. Call Run to start it.
func New(cfg *config.Config) (*Daemon, error) {
	store, err := runstore.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	d := &Daemon{
		cfg:        cfg,
		store:      store,
		projection: runstore.NewHistoryProjection(store, 100),
		recorder:   metrics.NoopRecorder{},
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(reg)
		metricsHandler = metrics.HTTPHandler(reg)
	}

	d.bus = events.NewBusWithStore(store)
	d.bus.SubscribeAll(d.applyToProjection)

	if cfg.NATS.Enabled {
		pub, err := natspub.NewPublisher(cfg.NATS)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect NATS: %w", err)
		}
		d.publisher = pub
		d.bus.SubscribeAll(pub.Handler())
	}

	runnerOpts := []executor.Option{
		executor.WithBus(d.bus),
		executor.WithRecorder(d.recorder),
		executor.WithWorkers(cfg.Daemon.Workers),
		executor.WithCheckout(checkout.NewClient(cfg.Checkout)),
		executor.WithToolchains(cfg.Toolchains),
	}
	if cfg.Workspace.Clean {
		runnerOpts = append(runnerOpts, executor.WithWorkspace(workspace.NewManager(cfg.Workspace.Directory)))
	} else {
		runnerOpts = append(runnerOpts, executor.WithWorkspace(workspace.NewPersistentManager(cfg.Workspace.Directory)))
	}
	if cfg.CacheEnabled() && cfg.Cache.Directory != "" {
		runnerOpts = append(runnerOpts, executor.WithCache(cache.New(cfg.Cache.Directory)))
	}
	d.runner = executor.NewRunner(runnerOpts...)

	d.queue = NewRunQueue(cfg.Daemon.QueueSize, cfg.Daemon.Workers, d, d.recorder)

	d.scheduler, err = NewScheduler(d.queue)
	if err != nil {
		store.Close()
		return nil, err
	}
	for _, sc := range cfg.Daemon.Schedules {
		if err := d.scheduler.Add(sc); err != nil {
			store.Close()
			return nil, err
		}
	}

	if cfg.Daemon.Watch {
		d.watcher, err = NewWorkflowWatcher(cfg.WorkflowDir, d.queue)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	d.server = NewHTTPServer(cfg.Daemon.ListenAddr, d, d.projection, metricsHandler)
	return d, nil
}

// Run starts all components and blocks until ctx is canceled, then shuts
// everything down in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	d.startTime = time.Now()

	if err := d.projection.Rebuild(ctx); err != nil {
		slog.Warn("run history rebuild failed", logfields.Error(err))
	}

	d.queue.Start(ctx)
	d.scheduler.Start()
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return err
		}
	}
	if err := d.server.Start(); err != nil {
		return err
	}

	slog.Info("daemon started",
		slog.String("listen_addr", d.cfg.Daemon.ListenAddr),
		slog.Int("workers", d.cfg.Daemon.Workers),
		slog.Bool("watch", d.cfg.Daemon.Watch),
		slog.Int("schedules", len(d.cfg.Daemon.Schedules)))

	<-ctx.Done()
	slog.Info("daemon shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.server.Stop(shutdownCtx); err != nil {
		slog.Warn("status server shutdown failed", logfields.Error(err))
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			slog.Warn("workflow watcher shutdown failed", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Warn("scheduler shutdown failed", logfields.Error(err))
	}
	d.queue.Stop()
	if d.publisher != nil {
		d.publisher.Close()
	}
	if err := d.store.Close(); err != nil {
		slog.Warn("run store close failed", logfields.Error(err))
	}
	slog.Info("daemon stopped")
	return nil
}

// Enqueue adds a run job to the queue.
func (d *Daemon) Enqueue(job *RunJob) error { return d.queue.Enqueue(job) }

// Status reports the daemon's current state.
func (d *Daemon) Status() Status {
	return Status{
		StartedAt:  d.startTime,
		Uptime:     time.Since(d.startTime).Round(time.Second).String(),
		Workers:    d.cfg.Daemon.Workers,
		QueueDepth: d.queue.Length(),
		ActiveRuns: d.queue.ActiveCount(),
		Watching:   d.cfg.Daemon.Watch,
		Schedules:  len(d.cfg.Daemon.Schedules),
	}
}

// ExecuteJob loads the job's workflow, plans it for the job's trigger and
// executes the plan. Implements Executor for the run queue.
func (d *Daemon) ExecuteJob(ctx context.Context, job *RunJob) (string, error) {
	path := job.Workflow
	if !filepath.IsAbs(path) {
		path = filepath.Join(d.cfg.WorkflowDir, path)
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return "", cverrors.Wrap(err, cverrors.CategoryWorkflow, cverrors.SeverityError, "load workflow").
			WithContext("path", path)
	}

	p, err := plan.NewBuilder(wf).WithTrigger(job.Trigger).Build()
	if err != nil {
		return "", cverrors.Wrap(err, cverrors.CategoryValidation, cverrors.SeverityError, "plan workflow").
			WithContext("workflow", wf.Name)
	}

	result, err := d.runner.Execute(ctx, p)
	if err != nil {
		return "", err
	}
	return result.Outcome, nil
}

// applyToProjection mirrors bus events into the in-memory run history.
func (d *Daemon) applyToProjection(e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		payload = []byte("{}")
	}
	d.projection.Apply(&runstore.BaseEvent{
		EventRunID:     e.GetRunID(),
		EventType:      e.Name(),
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	})
	return nil
}
