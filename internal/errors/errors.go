// Package errors provides a lightweight structured error type (ConveyorError)
// for category-based classification and retry semantics in the executor and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a conveyor error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryWorkflow   ErrorCategory = "workflow"
	CategoryAuth       ErrorCategory = "auth"

	// External system integration errors
	CategoryNetwork ErrorCategory = "network"
	CategoryGit     ErrorCategory = "git"

	// Execution errors
	CategoryStep       ErrorCategory = "step"
	CategoryCache      ErrorCategory = "cache"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryStore    ErrorCategory = "store"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ConveyorError is a structured error with category, retryability, and context
type ConveyorError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for ConveyorError
type ContextFields map[string]any

// Error implements the error interface
func (e *ConveyorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *ConveyorError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *ConveyorError) WithContext(key string, value any) *ConveyorError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ConveyorError
func New(category ErrorCategory, severity ErrorSeverity, message string) *ConveyorError {
	return &ConveyorError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new ConveyorError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *ConveyorError {
	return &ConveyorError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Retryable creates a new retryable ConveyorError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *ConveyorError {
	return &ConveyorError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable ConveyorError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *ConveyorError {
	return &ConveyorError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ce, ok := err.(*ConveyorError); ok {
		return ce.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if ce, ok := err.(*ConveyorError); ok {
		return ce.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a ConveyorError
func GetCategory(err error) ErrorCategory {
	if ce, ok := err.(*ConveyorError); ok {
		return ce.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *ConveyorError {
	return &ConveyorError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}

// StepError creates a new step execution error
func StepError(message string) *ConveyorError {
	return &ConveyorError{
		Category: CategoryStep,
		Severity: SeverityError,
		Message:  message,
	}
}

// DaemonError creates a new daemon error
func DaemonError(message string) *ConveyorError {
	return &ConveyorError{
		Category: CategoryDaemon,
		Severity: SeverityError,
		Message:  message,
	}
}
