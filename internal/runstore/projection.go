package runstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	runStatusRunning = "running"
)

// RunSummary is a read model summarizing a completed or in-progress run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Workflow    string        `json:"workflow"`
	Trigger     string        `json:"trigger,omitempty"`
	Branch      string        `json:"branch,omitempty"`
	Status      string        `json:"status"` // "running", "success", "failed", "canceled"
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	JobCount    int           `json:"job_count"`
	FailedSteps []string      `json:"failed_steps,omitempty"`
}

// HistoryProjection maintains an in-memory view of run history,
// reconstructed from events stored in the run store.
type HistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	history []*RunSummary // ordered by start time, newest first
	maxSize int
}

// NewHistoryProjection creates a new projection backed by the given store.
func NewHistoryProjection(store Store, maxHistorySize int) *HistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &HistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
// This is typically called at startup.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = p.history[:0]

	for _, event := range events {
		p.applyLocked(event)
	}

	p.sortAndTrimLocked()
	return nil
}

// Apply processes a single event and updates the projection. Used for
// real-time updates while a run executes.
func (p *HistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
	p.sortAndTrimLocked()
}

func (p *HistoryProjection) applyLocked(event Event) {
	switch event.Type() {
	case "RunStarted":
		var payload struct {
			Workflow string `json:"workflow"`
			Trigger  string `json:"trigger"`
			Branch   string `json:"branch"`
			Jobs     int    `json:"jobs"`
		}
		_ = json.Unmarshal(event.Payload(), &payload)
		summary := &RunSummary{
			RunID:     event.RunID(),
			Workflow:  payload.Workflow,
			Trigger:   payload.Trigger,
			Branch:    payload.Branch,
			Status:    runStatusRunning,
			StartedAt: event.Timestamp(),
			JobCount:  payload.Jobs,
		}
		p.runs[event.RunID()] = summary
		p.history = append(p.history, summary)
	case "StepFinished":
		summary, ok := p.runs[event.RunID()]
		if !ok {
			return
		}
		var payload struct {
			Job    string `json:"job"`
			Step   string `json:"step"`
			Status string `json:"status"`
		}
		_ = json.Unmarshal(event.Payload(), &payload)
		if payload.Status == "failed" {
			summary.FailedSteps = append(summary.FailedSteps, payload.Job+": "+payload.Step)
		}
	case "RunFinished":
		summary, ok := p.runs[event.RunID()]
		if !ok {
			return
		}
		var payload struct {
			Outcome string `json:"outcome"`
		}
		_ = json.Unmarshal(event.Payload(), &payload)
		summary.Status = payload.Outcome
		completed := event.Timestamp()
		summary.CompletedAt = &completed
		summary.Duration = completed.Sub(summary.StartedAt)
	}
}

func (p *HistoryProjection) sortAndTrimLocked() {
	sort.Slice(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		for _, dropped := range p.history[p.maxSize:] {
			if dropped.Status != runStatusRunning {
				delete(p.runs, dropped.RunID)
			}
		}
		p.history = p.history[:p.maxSize]
	}
}

// Get returns the summary for a run, if known.
func (p *HistoryProjection) Get(runID string) (*RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// History returns the known runs, newest first.
func (p *HistoryProjection) History() []*RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*RunSummary, len(p.history))
	for i, s := range p.history {
		cp := *s
		out[i] = &cp
	}
	return out
}
