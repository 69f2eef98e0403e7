package cli

import (
	"slices"

	"github.com/spf13/cobra"

	"protonbuild/internal/pipeline"
)

func newPlanCommand(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the steps a build would run",
		Long: `Print the resolved step list for --step and --exclude without running
anything. Excluded steps are listed separately.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			planned, err := pipeline.Plan(steps, excluded)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(1)
			}

			p := app.Printer
			p.Header("Build plan")
			p.KeyValue("Base dir", s.layout.Base)
			p.KeyValue("Runtime", s.target.RuntimeID())
			for i, step := range planned {
				p.StepStart(i+1, len(planned), step.ID, step.Description)
			}
			for _, id := range excluded {
				if slices.Contains(ids, id) {
					p.Info("excluded: %s", id)
				}
			}
			if len(planned) == 0 {
				p.Warning("Nothing to run")
			}
			return nil
		},
	}
}
