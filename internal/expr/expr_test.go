package expr

import (
	"sort"
	"testing"
)

var matrixCtx = Context{
	"matrix.os":      "ubuntu-latest",
	"matrix.target":  "x86_64-unknown-linux-gnu",
	"trigger.event":  "push",
	"trigger.branch": "main",
}

func TestEvalContains(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{`contains(matrix.os, 'ubuntu')`, true},
		{`contains(matrix.os, 'windows')`, false},
		{`startsWith(matrix.target, 'x86_64')`, true},
		{`startsWith(matrix.target, 'aarch64')`, false},
	}
	for _, c := range cases {
		got, err := Eval(c.src, matrixCtx)
		if err != nil {
			t.Fatalf("%s: %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %v got %v", c.src, c.want, got)
		}
	}
}

func TestEvalComparisonAndLogic(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{`matrix.os == 'ubuntu-latest'`, true},
		{`matrix.os != 'windows-latest'`, true},
		{`trigger.event == 'push' && trigger.branch == 'main'`, true},
		{`trigger.event == 'pull_request' || trigger.branch == 'main'`, true},
		{`!contains(matrix.os, 'windows')`, true},
		{`(trigger.event == 'push') && !(matrix.os == 'windows-latest')`, true},
		{`true`, true},
		{`false || false`, false},
	}
	for _, c := range cases {
		got, err := Eval(c.src, matrixCtx)
		if err != nil {
			t.Fatalf("%s: %v", c.src, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %v got %v", c.src, c.want, got)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	cases := []string{
		`contains(matrix.os`,         // unterminated call
		`matrix.os = 'ubuntu'`,       // single =
		`'just a string'`,            // non-boolean result
		`matrix.unknown == 'x'`,      // unknown identifier
		`frobnicate(matrix.os, 'a')`, // unknown function
		`contains(matrix.os)`,        // arity
		`matrix.os && true`,          // non-boolean operand
		`'unterminated`,              // lexer error
	}
	for _, src := range cases {
		if _, err := Eval(src, matrixCtx); err == nil {
			t.Fatalf("%s: expected error", src)
		}
	}
}

func TestShortCircuitSkipsUnknownIdentifiers(t *testing.T) {
	// && short-circuits before the right side would fail resolution.
	got, err := Eval(`false && missing.key == 'x'`, matrixCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Fatal("expected false")
	}
}

func TestIdentifiers(t *testing.T) {
	node, err := Parse(`contains(matrix.os, 'ubuntu') && trigger.event == 'push'`)
	if err != nil {
		t.Fatal(err)
	}
	ids := Identifiers(node)
	sort.Strings(ids)
	want := []string{"matrix.os", "trigger.event"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v got %v", want, ids)
		}
	}
}
