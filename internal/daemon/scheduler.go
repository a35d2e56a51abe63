package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/plan"
)

// Scheduler wraps gocron for periodic workflow runs.
type Scheduler struct {
	scheduler gocron.Scheduler
	enqueuer  interface {
		Enqueue(job *RunJob) error
	}
}

// NewScheduler creates a scheduler feeding the given queue.
func NewScheduler(enqueuer interface{ Enqueue(job *RunJob) error }) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, enqueuer: enqueuer}, nil
}

// Add registers one periodic trigger for a workflow file.
func (s *Scheduler) Add(sc config.ScheduleConfig) error {
	every, err := time.ParseDuration(sc.Every)
	if err != nil {
		return fmt.Errorf("schedule for %s: invalid interval %q: %w", sc.Workflow, sc.Every, err)
	}
	_, err = s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(s.trigger, sc),
		gocron.WithName(fmt.Sprintf("schedule-%s", sc.Workflow)),
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule for %s: %w", sc.Workflow, err)
	}
	return nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	slog.Info("starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Scheduler) Stop() error {
	slog.Info("stopping scheduler")
	return s.scheduler.Shutdown()
}

// trigger is called by gocron when a schedule fires.
func (s *Scheduler) trigger(sc config.ScheduleConfig) {
	job := &RunJob{
		ID:        uuid.NewString(),
		Workflow:  sc.Workflow,
		Kind:      KindScheduled,
		Trigger:   plan.TriggerEvent{Event: plan.EventSchedule, Branch: sc.Branch},
		CreatedAt: time.Now(),
	}
	if err := s.enqueuer.Enqueue(job); err != nil {
		slog.Error("failed to enqueue scheduled run",
			logfields.Workflow(sc.Workflow),
			logfields.Error(err))
	}
}
