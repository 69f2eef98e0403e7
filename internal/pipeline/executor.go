// Package pipeline runs an ordered list of build steps.
//
// The pipeline package provides [Executor] which checks that the required
// external tools are installed, then runs each [Step] in declared order.
// Steps named in the exclusion set are reported as excluded and never invoked.
//
// Key concepts:
//   - Order is the position of a step in the slice passed to [Executor.Run]
//   - A fatal step that fails aborts the run with [ErrStepFailed]
//   - A best-effort step that fails is recorded as [OutcomeWarned] and the run continues
//   - Missing required tools abort before any step with [ErrMissingTools]
//   - Progress can be tracked via [ProgressCallback]
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"protonbuild/internal/command"
)

// DefaultProbeTimeout bounds each preflight tool check.
const DefaultProbeTimeout = 10 * time.Second

// Step is a named unit of build work.
type Step struct {
	// ID uniquely identifies the step within a run (e.g., "clone", "crypto").
	ID string

	// Description is a short human-readable label for progress output.
	Description string

	// Action performs the step. It must be idempotent.
	Action func(ctx context.Context) error

	// Fatal steps abort the run on failure. Non-fatal steps are best-effort.
	Fatal bool
}

// Outcome is the result classification for one step.
type Outcome string

// Step outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeWarned    Outcome = "warned"
	OutcomeFailed    Outcome = "failed"
	OutcomeExcluded  Outcome = "excluded"

	// OutcomeNotRun marks steps after a fatal failure.
	OutcomeNotRun Outcome = "not-run"
)

// StepResult records what happened to one step.
type StepResult struct {
	ID          string
	Description string
	Outcome     Outcome
	Duration    time.Duration
	Err         error
}

// Report is the outcome of a full run.
type Report struct {
	Started  time.Time
	Duration time.Duration
	Tools    []ToolCheck
	Steps    []StepResult
}

// Count returns the number of steps with the given outcome.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// ProgressCallback is invoked before each non-excluded step begins.
//
// The callback receives stepIndex (1-based), totalSteps (the count of
// steps that will run), and the step itself.
type ProgressCallback func(stepIndex, totalSteps int, step Step)

// Executor runs build steps after a tool preflight.
//
// Use [NewExecutor] to create an instance and [Executor.Run] to execute.
type Executor struct {
	runner           command.Runner
	tools            []Tool
	probeTimeout     time.Duration
	progressCallback ProgressCallback
	toolCallback     ToolCallback
}

// NewExecutor creates an Executor that probes tools with runner.
//
// Pass nil tools to skip preflight entirely. The probe timeout defaults to
// [DefaultProbeTimeout]; callbacks are not set.
func NewExecutor(runner command.Runner, tools []Tool) *Executor {
	return &Executor{
		runner:       runner,
		tools:        tools,
		probeTimeout: DefaultProbeTimeout,
	}
}

// SetProbeTimeout overrides the preflight probe bound. Non-positive values
// are ignored.
func (e *Executor) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		e.probeTimeout = d
	}
}

// SetProgressCallback configures an optional callback invoked before each step.
func (e *Executor) SetProgressCallback(cb ProgressCallback) {
	e.progressCallback = cb
}

// SetToolCallback configures an optional callback invoked after each tool probe.
func (e *Executor) SetToolCallback(cb ToolCallback) {
	e.toolCallback = cb
}

// Run executes steps in declared order, skipping any id in excluded.
//
// Run first validates that ids are unique and then runs the tool preflight.
// Either failure returns before any action is invoked. A failing fatal step
// stops the run; the returned error wraps [ErrStepFailed] and the action's
// error. The returned [Report] is populated in every case.
func (e *Executor) Run(ctx context.Context, steps []Step, excluded []string) (Report, error) {
	report := Report{Started: time.Now()}

	if err := validate(steps); err != nil {
		return report, err
	}

	checks, err := Preflight(ctx, e.runner, e.tools, e.probeTimeout, e.toolCallback)
	report.Tools = checks
	if err != nil {
		report.Duration = time.Since(report.Started)
		return report, err
	}

	skip := toSet(excluded)
	total := 0
	for _, s := range steps {
		if !skip[s.ID] {
			total++
		}
	}

	index := 0
	for i, s := range steps {
		if skip[s.ID] {
			slog.Debug("step excluded", "step", s.ID)
			report.Steps = append(report.Steps, StepResult{ID: s.ID, Description: s.Description, Outcome: OutcomeExcluded})
			continue
		}

		if err := ctx.Err(); err != nil {
			report.Steps = append(report.Steps, notRun(steps[i:], skip)...)
			report.Duration = time.Since(report.Started)
			return report, err
		}

		index++
		if e.progressCallback != nil {
			e.progressCallback(index, total, s)
		}

		start := time.Now()
		actionErr := s.Action(ctx)
		res := StepResult{ID: s.ID, Description: s.Description, Duration: time.Since(start), Err: actionErr}

		switch {
		case actionErr == nil:
			res.Outcome = OutcomeSucceeded
		case s.Fatal:
			res.Outcome = OutcomeFailed
			report.Steps = append(report.Steps, res)
			report.Steps = append(report.Steps, notRun(steps[i+1:], skip)...)
			report.Duration = time.Since(report.Started)
			return report, &StepError{StepID: s.ID, Err: actionErr}
		default:
			slog.Warn("best-effort step failed", "step", s.ID, "error", actionErr)
			res.Outcome = OutcomeWarned
		}
		report.Steps = append(report.Steps, res)
	}

	report.Duration = time.Since(report.Started)
	return report, nil
}

// Plan returns the steps Run would invoke, in order, without running
// anything. Duplicate ids are rejected the same way Run rejects them.
func Plan(steps []Step, excluded []string) ([]Step, error) {
	if err := validate(steps); err != nil {
		return nil, err
	}
	skip := toSet(excluded)
	var out []Step
	for _, s := range steps {
		if !skip[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func validate(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if seen[s.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func notRun(steps []Step, skip map[string]bool) []StepResult {
	out := make([]StepResult, 0, len(steps))
	for _, s := range steps {
		o := OutcomeNotRun
		if skip[s.ID] {
			o = OutcomeExcluded
		}
		out = append(out, StepResult{ID: s.ID, Description: s.Description, Outcome: o})
	}
	return out
}
