package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/plan"
)

// WorkflowWatcher re-runs workflows when their definition files change.
type WorkflowWatcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	enqueuer interface {
		Enqueue(job *RunJob) error
	}
	debounceTime time.Duration
}

// NewWorkflowWatcher creates a watcher over the workflow directory.
func NewWorkflowWatcher(dir string, enqueuer interface{ Enqueue(job *RunJob) error }) (*WorkflowWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve workflow directory: %w", err)
	}
	return &WorkflowWatcher{
		dir:          abs,
		watcher:      watcher,
		enqueuer:     enqueuer,
		debounceTime: 2 * time.Second, // collapse editor save bursts
	}, nil
}

// Start begins watching. The watch loop exits when ctx is canceled.
func (w *WorkflowWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch workflow directory %s: %w", w.dir, err)
	}
	slog.Info("starting workflow watcher", logfields.Path(w.dir))
	go w.watchLoop(ctx)
	return nil
}

// Stop closes the file system watcher.
func (w *WorkflowWatcher) Stop() error {
	slog.Info("stopping workflow watcher")
	return w.watcher.Close()
}

func (w *WorkflowWatcher) watchLoop(ctx context.Context) {
	// One pending trigger per workflow file; the timer collapses rapid
	// successive writes into a single run.
	pending := map[string]*time.Timer{}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			if !isWorkflowFile(path) {
				continue
			}
			if t, ok := pending[path]; ok {
				t.Reset(w.debounceTime)
				continue
			}
			pending[path] = time.AfterFunc(w.debounceTime, func() {
				w.trigger(path)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("workflow watcher error", logfields.Error(err))
		}
	}
}

func (w *WorkflowWatcher) trigger(path string) {
	slog.Info("workflow file changed", logfields.Path(path))
	job := &RunJob{
		ID:        uuid.NewString(),
		Workflow:  path,
		Kind:      KindWatch,
		Trigger:   plan.TriggerEvent{Event: plan.EventManual},
		CreatedAt: time.Now(),
	}
	if err := w.enqueuer.Enqueue(job); err != nil {
		slog.Error("failed to enqueue watched run", logfields.Path(path), logfields.Error(err))
	}
}

func isWorkflowFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
