// Package workspace manages per-run working directories. Every matrix job of
// a run gets an isolated directory keyed by run ID and job label; persistent
// mode keeps directories across runs for incremental work.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/conveyor/internal/logfields"
)

// Manager hands out isolated job directories under a common root.
type Manager struct {
	root       string
	persistent bool // if true, job dirs survive Cleanup
}

// NewManager creates a workspace manager rooted at root.
func NewManager(root string) *Manager {
	if root == "" {
		root = filepath.Join(os.TempDir(), "conveyor")
	}
	return &Manager{root: root}
}

// NewPersistentManager creates a manager whose job directories are kept
// across runs (Cleanup becomes a no-op).
func NewPersistentManager(root string) *Manager {
	m := NewManager(root)
	m.persistent = true
	return m
}

// JobDir creates (if needed) and returns the working directory for one job
// of a run.
func (m *Manager) JobDir(runID, jobLabel string) (string, error) {
	dir := filepath.Join(m.root, sanitize(runID), sanitize(jobLabel))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes the directories of a run. Persistent managers keep them.
func (m *Manager) Cleanup(runID string) error {
	if m.persistent {
		slog.Debug("persistent workspace, skipping cleanup", logfields.RunID(runID))
		return nil
	}
	dir := filepath.Join(m.root, sanitize(runID))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cleanup run workspace: %w", err)
	}
	slog.Debug("workspace cleaned", logfields.RunID(runID), logfields.Path(dir))
	return nil
}

// Root returns the manager's root directory.
func (m *Manager) Root() string { return m.root }

// sanitize turns an arbitrary label into a single path segment.
func sanitize(label string) string {
	r := strings.NewReplacer("/", "-", "\\", "-", " ", "-", "(", "", ")", "", ":", "-")
	out := r.Replace(label)
	out = strings.Trim(out, "-.")
	if out == "" {
		out = "job"
	}
	return out
}
