package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"protonbuild/internal/output"
	"protonbuild/internal/paths"
	"protonbuild/internal/pipeline"
	"protonbuild/internal/platform"
	"protonbuild/internal/router"
	"protonbuild/internal/status"
	"protonbuild/internal/toolchain"
	"protonbuild/internal/workflow"
)

// supportedArchs are the architectures accepted by --arch, after
// normalization.
var supportedArchs = []string{"amd64", "arm64", "386"}

// session is the resolved state for one invocation.
type session struct {
	layout   paths.Layout
	target   platform.Target
	resolver *toolchain.Resolver
	builder  *workflow.Builder
}

// newSession resolves the base directory and target and wires the builder.
func (app *App) newSession(opts *options) (*session, error) {
	target := app.Target
	if opts.arch != "" {
		target = target.WithArch(opts.arch)
		if !slices.Contains(supportedArchs, target.GOARCH()) {
			return nil, usageErrorf("unsupported architecture %q (use %s)", opts.arch, strings.Join(supportedArchs, ", "))
		}
	}

	cwd := app.WorkDir
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}
	base, err := paths.ResolveBaseDir(opts.baseDir, cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	layout, err := paths.NewLayout(base)
	if err != nil {
		return nil, err
	}

	resolver := toolchain.NewResolver(app.Runner,
		toolchain.WithProbeTimeout(app.Config.Tools.ProbeTimeout),
		toolchain.WithFallback(app.Config.Toolchain.Fallback),
	)

	return &session{
		layout:   layout,
		target:   target,
		resolver: resolver,
		builder:  workflow.NewBuilder(app.Runner, app.Printer, app.Config, layout, target, resolver),
	}, nil
}

// selection resolves --step and --exclude (plus the deprecated --skip-clone)
// into step ids and canonical exclusions.
func (app *App) selection(opts *options) ([]string, []string, error) {
	r, err := router.NewRouterWithSequence(app.Config.Steps)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid steps in configuration: %w", err)
	}

	ids, err := r.Select(opts.step)
	if err != nil {
		return nil, nil, err
	}

	exclude := opts.exclude
	if opts.skipClone {
		app.Printer.Warning("--skip-clone is deprecated, use --exclude clone")
		exclude = append(slices.Clone(exclude), router.StepClone)
	}
	excluded, err := r.Exclusions(exclude)
	if err != nil {
		return nil, nil, err
	}
	return ids, excluded, nil
}

// tools returns the preflight tool list from configuration. Known tools keep
// their install hints.
func (app *App) tools() []pipeline.Tool {
	hints := make(map[string]string)
	for _, t := range pipeline.DefaultTools() {
		hints[t.Name] = t.Hint
	}

	tools := make([]pipeline.Tool, 0, len(app.Config.Tools.Required))
	for _, name := range app.Config.Tools.Required {
		tools = append(tools, pipeline.NewTool(name, hints[name]))
	}
	return tools
}

// runBuild runs the selected steps and records the outcome.
func (app *App) runBuild(ctx context.Context, opts *options) error {
	ids, excluded, err := app.selection(opts)
	if err != nil {
		app.Printer.Error("%v", err)
		return NewExitError(exitCodeFor(err))
	}

	s, err := app.newSession(opts)
	if err != nil {
		app.Printer.Error("%v", err)
		return NewExitError(exitCodeFor(err))
	}

	steps, err := s.builder.Steps(ids)
	if err != nil {
		app.Printer.Error("%v", err)
		return NewExitError(exitCodeFor(err))
	}

	p := app.Printer
	p.Header("protonbuild")
	p.KeyValue("Base dir", s.layout.Base)
	p.KeyValue("Target", s.target.String())
	p.KeyValue("Runtime", s.target.RuntimeID())
	p.KeyValue("Steps", strings.Join(ids, ", "))
	if len(excluded) > 0 {
		p.KeyValue("Excluded", strings.Join(excluded, ", "))
	}

	executor := pipeline.NewExecutor(app.Runner, app.tools())
	executor.SetProbeTimeout(app.Config.Tools.ProbeTimeout)
	executor.SetToolCallback(func(c pipeline.ToolCheck) {
		p.ToolCheck(c.Tool.Name, c.Available)
	})
	executor.SetProgressCallback(func(index, total int, step pipeline.Step) {
		p.StepStart(index, total, step.ID, step.Description)
	})

	p.Header("Checking required tools")
	report, runErr := executor.Run(ctx, steps, excluded)

	app.record(s, opts, excluded, report, runErr)
	app.printSummary(report)

	if runErr == nil {
		p.Success("Build completed successfully")
		return nil
	}

	var missing *pipeline.MissingToolsError
	if errors.As(runErr, &missing) {
		p.Error("Missing required tools: %s", strings.Join(missing.Tools, ", "))
		for _, tool := range missing.Tools {
			if hint, ok := missing.Hints[tool]; ok {
				p.Info("  %s", hint)
			}
		}
		return NewExitError(1)
	}

	p.Error("Build failed: %v", runErr)
	return NewExitError(exitCodeFor(runErr))
}

// record writes the run report. Failure to write is a warning.
func (app *App) record(s *session, opts *options, excluded []string, report pipeline.Report, runErr error) {
	rep := status.FromPipeline(report, runErr)
	rep.BaseDir = s.layout.Base
	rep.Target = s.target.String()
	rep.RuntimeID = s.target.RuntimeID()
	rep.Selector = opts.step
	rep.Excluded = excluded

	w := status.NewWriter(s.layout.LastRun())
	if err := w.Write(rep); err != nil {
		app.Printer.Warning("Could not record build report: %v", err)
	}
}

func (app *App) printSummary(report pipeline.Report) {
	if len(report.Steps) == 0 {
		return
	}
	rows := make([]output.SummaryRow, 0, len(report.Steps))
	for _, r := range report.Steps {
		row := output.SummaryRow{ID: r.ID, Outcome: string(r.Outcome), Duration: r.Duration}
		if r.Err != nil {
			row.Detail = r.Err.Error()
		}
		rows = append(rows, row)
	}
	app.Printer.Summary(rows, report.Duration)
}

// runClean removes build outputs and caches.
func (app *App) runClean(ctx context.Context, opts *options) error {
	s, err := app.newSession(opts)
	if err != nil {
		app.Printer.Error("%v", err)
		return NewExitError(exitCodeFor(err))
	}
	if err := s.builder.Clean(ctx); err != nil {
		app.Printer.Error("Clean interrupted: %v", err)
		return NewExitError(1)
	}
	return nil
}
