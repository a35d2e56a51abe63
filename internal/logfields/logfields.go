package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyWorkflow   = "workflow"
	KeyJob        = "job"
	KeyStep       = "step"
	KeyTrigger    = "trigger"
	KeyBranch     = "branch"
	KeyTarget     = "target"
	KeyOS         = "os"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyWorker     = "worker"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Workflow(name string) slog.Attr  { return slog.String(KeyWorkflow, name) }
func Job(label string) slog.Attr      { return slog.String(KeyJob, label) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func Trigger(event string) slog.Attr  { return slog.String(KeyTrigger, event) }
func Branch(name string) slog.Attr    { return slog.String(KeyBranch, name) }
func Target(triple string) slog.Attr  { return slog.String(KeyTarget, triple) }
func OS(label string) slog.Attr       { return slog.String(KeyOS, label) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Worker(id string) slog.Attr      { return slog.String(KeyWorker, id) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
