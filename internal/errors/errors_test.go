package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryStep, SeverityError, "fmt check failed")
	if got := e.Error(); got != "step (error): fmt check failed" {
		t.Fatalf("unexpected message: %q", got)
	}

	wrapped := Wrap(stderrors.New("exit status 1"), CategoryStep, SeverityError, "cargo fmt")
	if !strings.Contains(wrapped.Error(), "exit status 1") {
		t.Fatalf("cause missing from message: %q", wrapped.Error())
	}
}

func TestUnwrapChain(t *testing.T) {
	sentinel := stderrors.New("network down")
	wrapped := WrapRetryable(sentinel, CategoryNetwork, SeverityError, "publish run event")
	if !stderrors.Is(wrapped, sentinel) {
		t.Fatal("errors.Is should reach the cause")
	}
}

func TestClassificationHelpers(t *testing.T) {
	e := Retryable(CategoryGit, SeverityError, "clone timed out")
	if !IsRetryable(e) {
		t.Fatal("expected retryable")
	}
	if !IsCategory(e, CategoryGit) {
		t.Fatal("expected git category")
	}
	if IsCategory(stderrors.New("plain"), CategoryGit) {
		t.Fatal("plain errors have no category")
	}
	if got := GetCategory(stderrors.New("plain")); got != CategoryInternal {
		t.Fatalf("plain errors default to internal, got %s", got)
	}
}

func TestWithContext(t *testing.T) {
	e := StepError("doc build failed").WithContext("step", "doc").WithContext("exit_code", 101)
	if e.Context["step"] != "doc" || e.Context["exit_code"] != 101 {
		t.Fatalf("context not recorded: %#v", e.Context)
	}
}
