package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/conveyor/internal/cache"
	"git.home.luguber.info/inful/conveyor/internal/checkout"
	"git.home.luguber.info/inful/conveyor/internal/plan"
	"git.home.luguber.info/inful/conveyor/internal/workflow"
)

// outputTailLimit bounds how much step output a result retains.
const outputTailLimit = 8 * 1024

type pendingSave struct {
	key   string
	paths []string
}

// jobState carries mutable per-job execution state between steps.
type jobState struct {
	cwd        string // directory run steps execute in
	workdir    string // job-private scratch directory
	cacheSaves []pendingSave
}

// runStep executes one selected step and never panics the job: all failures
// come back as a failed StepResult.
func (r *Runner) runStep(ctx context.Context, js *jobState, jp plan.JobPlan, sp plan.StepPlan) StepResult {
	started := time.Now()
	sr := StepResult{Name: sp.Step.Label(), Status: StatusSuccess}

	cctx := ctx
	if sp.Step.Timeout != "" {
		d, err := time.ParseDuration(sp.Step.Timeout)
		if err != nil {
			return fail(sr, started, fmt.Errorf("invalid timeout %q: %w", sp.Step.Timeout, err))
		}
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var err error
	switch sp.Step.Uses {
	case workflow.UsesCheckout:
		err = r.stepCheckout(cctx, js, sp.Step)
	case workflow.UsesToolchain:
		sr.Output, err = r.stepToolchain(cctx, js, jp, sp)
	case workflow.UsesCache:
		sr.Output, err = r.stepCache(js, sp.Step)
	default:
		sr.Output, err = r.execScript(cctx, js.cwd, sp.Step.Shell, sp.Step.Run, jp.StepEnv(sp))
	}
	if err != nil {
		return fail(sr, started, err)
	}
	sr.Duration = time.Since(started)
	return sr
}

func fail(sr StepResult, started time.Time, err error) StepResult {
	sr.Status = StatusFailed
	sr.Error = err.Error()
	sr.Duration = time.Since(started)
	return sr
}

// stepCheckout resolves the job's source tree. With a repository url it
// clones into the job scratch dir; without one the runner's source directory
// is copied there, so parallel matrix cells never share a working tree.
func (r *Runner) stepCheckout(ctx context.Context, js *jobState, step workflow.Step) error {
	repo := step.With["repository"]
	if repo == "" {
		abs, err := filepath.Abs(r.sourceDir)
		if err != nil {
			return fmt.Errorf("resolve source directory: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("source directory unavailable: %w", err)
		}
		dest := filepath.Join(js.workdir, "src")
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("create source copy: %w", err)
		}
		if err := cache.CopyTree(abs, dest); err != nil {
			return fmt.Errorf("copy source directory: %w", err)
		}
		js.cwd = dest
		return nil
	}
	if r.checkout == nil {
		return fmt.Errorf("checkout client not configured")
	}
	dest := filepath.Join(js.workdir, "src")
	if err := r.checkout.Checkout(ctx, checkout.Request{
		URL:    repo,
		Branch: step.With["branch"],
		Dest:   dest,
	}); err != nil {
		return err
	}
	js.cwd = dest
	return nil
}

// stepToolchain installs a toolkit by expanding the configured installer
// template and running it. Workflows name the toolkit and its pins; the
// runner decides how that toolkit gets installed on this host.
func (r *Runner) stepToolchain(ctx context.Context, js *jobState, jp plan.JobPlan, sp plan.StepPlan) (string, error) {
	toolkit := sp.Step.With["toolkit"]
	if toolkit == "" {
		return "", fmt.Errorf("toolchain step names no toolkit")
	}
	template, ok := r.toolchains[toolkit]
	if !ok {
		return "", fmt.Errorf("no installer configured for toolkit %q", toolkit)
	}
	command := expandTemplate(template, sp.Step.With)
	return r.execScript(ctx, js.cwd, sp.Step.Shell, command, jp.StepEnv(sp))
}

// expandTemplate substitutes {key} placeholders from the step's with map.
// Unreferenced placeholders expand to the empty string.
func expandTemplate(template string, with map[string]string) string {
	keys := make([]string, 0, len(with))
	for k := range with {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{"+k+"}", with[k])
	}
	// Drop placeholders the step did not provide.
	for {
		start := strings.Index(out, "{")
		if start < 0 {
			break
		}
		end := strings.Index(out[start:], "}")
		if end < 0 {
			break
		}
		out = out[:start] + out[start+end+1:]
	}
	return strings.Join(strings.Fields(out), " ")
}

// stepCache restores the content-keyed cache now and schedules a save for
// when the job succeeds. Restore-only steps simply name no paths.
func (r *Runner) stepCache(js *jobState, step workflow.Step) (string, error) {
	if !r.useCache {
		return "cache disabled", nil
	}
	keyFiles := splitList(step.With["key-files"])
	if len(keyFiles) == 0 {
		return "", fmt.Errorf("cache step names no key-files")
	}
	key, err := r.cache.Key(js.cwd, keyFiles)
	if err != nil {
		return "", err
	}
	hit, err := r.cache.Restore(key, js.cwd)
	if err != nil {
		return "", err
	}
	if paths := splitList(step.With["paths"]); len(paths) > 0 {
		js.cacheSaves = append(js.cacheSaves, pendingSave{key: key, paths: paths})
	}
	if hit {
		return "cache hit: " + key, nil
	}
	return "cache miss: " + key, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// execScript runs a shell command in dir with the merged environment and
// returns the output tail. Non-zero exit is an error.
func (r *Runner) execScript(ctx context.Context, dir, shell, script string, env map[string]string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("empty command")
	}
	if shell == "" {
		shell = "sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", script)
	cmd.Dir = dir
	cmd.Env = mergedEnviron(env)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := buf.String()
	if len(output) > outputTailLimit {
		output = output[len(output)-outputTailLimit:]
	}
	if ctx.Err() != nil {
		return output, fmt.Errorf("command canceled: %w", ctx.Err())
	}
	if err != nil {
		return output, fmt.Errorf("command failed: %w", err)
	}
	return output, nil
}

// mergedEnviron overlays env onto the process environment.
func mergedEnviron(env map[string]string) []string {
	out := os.Environ()
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
