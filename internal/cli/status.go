package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"protonbuild/internal/output"
	"protonbuild/internal/status"
)

func newStatusCommand(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the last recorded build",
		Long: `Print the report of the most recent build in the workspace, read from
.protonbuild/last-run.yaml (or PROTONBUILD_REPORT_PATH).`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(opts)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitCodeFor(err))
			}

			report, err := status.NewReader(s.layout.LastRun()).Read()
			if errors.Is(err, status.ErrNoReport) {
				app.Printer.Info("No build has been recorded in %s", s.layout.Base)
				return nil
			}
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(1)
			}

			printReport(app.Printer, report)
			return nil
		},
	}
}

func printReport(p *output.Printer, r *status.Report) {
	p.Header("Last build")
	p.KeyValue("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	p.KeyValue("Base dir", r.BaseDir)
	p.KeyValue("Target", r.Target)
	p.KeyValue("Runtime", r.RuntimeID)
	p.KeyValue("Step", r.Selector)
	if len(r.Excluded) > 0 {
		p.KeyValue("Excluded", strings.Join(r.Excluded, ", "))
	}
	p.KeyValue("Result", string(r.Result))
	if len(r.MissingTools) > 0 {
		p.KeyValue("Missing", strings.Join(r.MissingTools, ", "))
	}

	for _, step := range r.Steps {
		line := step.ID + "  " + step.Outcome
		if step.Duration != "" {
			line += "  " + step.Duration
		}
		if step.Error != "" {
			line += "  " + step.Error
		}
		switch step.Outcome {
		case "succeeded":
			p.Success("%s", line)
		case "warned":
			p.Warning("%s", line)
		case "failed":
			p.Error("%s", line)
		default:
			p.Info("%s", line)
		}
	}

	if r.Error != "" {
		p.Error("%s", r.Error)
	}
	p.KeyValue("Duration", r.Duration)
}
