package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/conveyor/internal/cache"
	"git.home.luguber.info/inful/conveyor/internal/checkout"
	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/daemon"
	"git.home.luguber.info/inful/conveyor/internal/executor"
	"git.home.luguber.info/inful/conveyor/internal/lint"
	"git.home.luguber.info/inful/conveyor/internal/plan"
	"git.home.luguber.info/inful/conveyor/internal/report"
	"git.home.luguber.info/inful/conveyor/internal/workflow"
	"git.home.luguber.info/inful/conveyor/internal/workspace"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"conveyor.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Validate struct {
		Path string `arg:"" optional:"" help:"Workflow file or directory (default: workflow_dir from config)"`
	} `cmd:"" help:"Validate workflow definitions without running them"`

	Plan struct {
		Workflow string `arg:"" help:"Workflow file to plan"`
		Event    string `help:"Trigger event (push, pull_request, schedule, manual)" default:"manual"`
		Branch   string `help:"Branch for push events"`
	} `cmd:"" help:"Show what a trigger would execute, without running anything"`

	Run struct {
		Workflow string `arg:"" help:"Workflow file to run"`
		Event    string `help:"Trigger event (push, pull_request, schedule, manual)" default:"manual"`
		Branch   string `help:"Branch for push events"`
		Source   string `short:"s" help:"Source directory checked-out steps resolve to" default:"."`
		NoCache  bool   `help:"Disable the dependency cache for this run"`
		Report   string `help:"Write an HTML run report to this file"`
	} `cmd:"" help:"Run a workflow locally"`

	Daemon struct{} `cmd:"" help:"Run continuously: schedules, file watching and the trigger API"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a starter configuration and example workflow"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "validate", "validate <path>":
		if err := runValidate(CLI.Validate.Path); err != nil {
			slog.Error("Validation failed", "error", err)
			os.Exit(1)
		}
	case "plan <workflow>":
		if err := runPlan(CLI.Plan.Workflow, CLI.Plan.Event, CLI.Plan.Branch); err != nil {
			slog.Error("Planning failed", "error", err)
			os.Exit(1)
		}
	case "run <workflow>":
		if err := runWorkflow(); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(CLI.Config); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	}
}

// loadWorkflows resolves a path argument to one or more workflow documents.
func loadWorkflows(path string) ([]*workflow.Workflow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return workflow.LoadDir(path)
	}
	wf, err := workflow.Load(path)
	if err != nil {
		return nil, err
	}
	return []*workflow.Workflow{wf}, nil
}

func runValidate(path string) error {
	if path == "" {
		path = config.DefaultWorkflowDir
		if cfg, err := config.Load(CLI.Config); err == nil {
			path = cfg.WorkflowDir
		}
	}
	flows, err := loadWorkflows(path)
	if err != nil {
		return err
	}
	if len(flows) == 0 {
		return fmt.Errorf("no workflow files found in %s", path)
	}

	result := lint.NewLinter().CheckAll(flows)
	for _, issue := range result.Issues {
		where := issue.Workflow
		if issue.Job != "" {
			where += "/" + issue.Job
		}
		if issue.Step != "" {
			where += "/" + issue.Step
		}
		fmt.Printf("%-7s %s: %s (%s)\n", issue.Severity, where, issue.Message, issue.Rule)
		if issue.Fix != "" {
			fmt.Printf("        fix: %s\n", issue.Fix)
		}
	}
	if result.HasErrors() {
		return fmt.Errorf("found %d error(s) in %d workflow(s)", len(result.Errors()), len(flows))
	}
	slog.Info("Workflows valid", "count", len(flows), "issues", len(result.Issues))
	return nil
}

func buildTrigger(event, branch string) plan.TriggerEvent {
	if event == "" {
		event = plan.EventManual
	}
	return plan.TriggerEvent{Event: event, Branch: branch}
}

func runPlan(path, event, branch string) error {
	wf, err := workflow.Load(path)
	if err != nil {
		return err
	}
	p, err := plan.NewBuilder(wf).WithTrigger(buildTrigger(event, branch)).Build()
	if err != nil {
		return err
	}

	fmt.Printf("workflow: %s\ntrigger:  %s", p.Workflow, p.Trigger.Event)
	if p.Trigger.Branch != "" {
		fmt.Printf(" (%s)", p.Trigger.Branch)
	}
	fmt.Printf("\njobs:     %d\n\n", len(p.Jobs))
	for _, jp := range p.Jobs {
		fmt.Printf("%s\n", jp.Label)
		for _, sp := range jp.Steps {
			if sp.Skip {
				fmt.Printf("  - %-30s SKIP  %s\n", sp.Step.Label(), sp.SkipReason)
				continue
			}
			fmt.Printf("  - %s\n", sp.Step.Label())
		}
	}
	return nil
}

func runWorkflow() error {
	wf, err := workflow.Load(CLI.Run.Workflow)
	if err != nil {
		return err
	}

	// Refuse to run workflows with structural errors.
	if result := lint.NewLinter().Check(wf); result.HasErrors() {
		for _, issue := range result.Errors() {
			fmt.Fprintf(os.Stderr, "ERROR %s: %s\n", issue.Workflow, issue.Message)
		}
		return fmt.Errorf("workflow has %d validation error(s)", len(result.Errors()))
	}

	p, err := plan.NewBuilder(wf).WithTrigger(buildTrigger(CLI.Run.Event, CLI.Run.Branch)).Build()
	if err != nil {
		return err
	}

	opts := []executor.Option{
		executor.WithSourceDir(CLI.Run.Source),
	}
	if cfg, err := config.Load(CLI.Config); err == nil {
		opts = append(opts,
			executor.WithCheckout(checkout.NewClient(cfg.Checkout)),
			executor.WithToolchains(cfg.Toolchains),
			executor.WithWorkspace(workspace.NewManager(cfg.Workspace.Directory)),
		)
		if cfg.CacheEnabled() && !CLI.Run.NoCache {
			opts = append(opts, executor.WithCache(cache.New(cfg.Cache.Directory)))
		}
	} else if !CLI.Run.NoCache {
		opts = append(opts, executor.WithCache(cache.New(filepath.Join(os.TempDir(), "conveyor-cache"))))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := executor.NewRunner(opts...).Execute(ctx, p)
	if err != nil {
		return err
	}

	fmt.Print(report.Markdown(result))
	if CLI.Run.Report != "" {
		page, err := report.HTML(result)
		if err != nil {
			return err
		}
		if err := os.WriteFile(CLI.Run.Report, page, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("Report written", "path", CLI.Run.Report)
	}

	if result.Failed() {
		return fmt.Errorf("run %s: %s", result.RunID, result.Outcome)
	}
	return nil
}

func runDaemon(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}
	return d.Run(ctx)
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", "path", configPath, "force", force)
	return config.Init(configPath, force)
}
