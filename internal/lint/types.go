package lint

// Severity indicates the importance level of a validation issue.
type Severity int

const (
	// SeverityInfo indicates informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but don't block runs.
	SeverityWarning
	// SeverityError indicates issues that make the workflow unrunnable.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single validation problem found in a workflow.
type Issue struct {
	Workflow string   // Workflow name
	Job      string   // Job key, empty for workflow-level issues
	Step     string   // Step label, empty for job-level issues
	Severity Severity // Issue severity level
	Rule     string   // Rule identifier (e.g., "matrix-target-consistency")
	Message  string   // Brief description of the issue
	Fix      string   // Suggested fix, when one is obvious
}

// Result contains all issues found during validation.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only the error-level issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}
