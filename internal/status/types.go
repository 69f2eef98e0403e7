// Package status persists the report of the most recent build run.
//
// After every run the orchestrator writes a YAML [Report] to
// <base>/.protonbuild/last-run.yaml. The report records the target, the
// selected toolchain, and the outcome of each step, so a later "status"
// invocation can show what happened without re-running anything.
//
// Key types:
//   - [Report] is the persisted run record
//   - [Reader] loads the report, [Writer] saves it atomically
package status

import (
	"time"

	"protonbuild/internal/pipeline"
)

// ReportVersion is the schema version written to new reports.
const ReportVersion = 1

// Result is the overall run outcome.
type Result string

// Run results.
const (
	ResultSucceeded Result = "succeeded"
	ResultFailed    Result = "failed"
)

// Report is the persisted record of one run.
type Report struct {
	Version      int          `yaml:"version"`
	StartedAt    time.Time    `yaml:"started_at"`
	Duration     string       `yaml:"duration"`
	BaseDir      string       `yaml:"base_dir"`
	Target       string       `yaml:"target"`
	RuntimeID    string       `yaml:"runtime_id"`
	Selector     string       `yaml:"selector"`
	Excluded     []string     `yaml:"excluded,omitempty"`
	Result       Result       `yaml:"result"`
	Error        string       `yaml:"error,omitempty"`
	MissingTools []string     `yaml:"missing_tools,omitempty"`
	Steps        []StepRecord `yaml:"steps"`
}

// StepRecord is the persisted outcome of one step.
type StepRecord struct {
	ID       string `yaml:"id"`
	Outcome  string `yaml:"outcome"`
	Duration string `yaml:"duration,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// FromPipeline builds the step and timing portion of a [Report] from an
// executor report and the error Run returned.
func FromPipeline(r pipeline.Report, runErr error) Report {
	rep := Report{
		Version:   ReportVersion,
		StartedAt: r.Started.UTC().Truncate(time.Second),
		Duration:  r.Duration.Round(time.Millisecond).String(),
		Result:    ResultSucceeded,
		Steps:     make([]StepRecord, 0, len(r.Steps)),
	}
	if runErr != nil {
		rep.Result = ResultFailed
		rep.Error = runErr.Error()
	}
	for _, c := range r.Tools {
		if !c.Available && c.Tool.Required {
			rep.MissingTools = append(rep.MissingTools, c.Tool.Name)
		}
	}
	for _, s := range r.Steps {
		rec := StepRecord{ID: s.ID, Outcome: string(s.Outcome)}
		if s.Duration > 0 {
			rec.Duration = s.Duration.Round(time.Millisecond).String()
		}
		if s.Err != nil {
			rec.Error = s.Err.Error()
		}
		rep.Steps = append(rep.Steps, rec)
	}
	return rep
}
