package cli

import (
	"github.com/spf13/cobra"
)

func newCleanCommand(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs and caches",
		Long: `Remove the crypto and SDK build outputs, the Rust target directories,
the staged native libraries and the local NuGet repository, then run
cargo clean and clear the NuGet caches. Failures are reported as warnings.

Equivalent to protonbuild --clean.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runClean(cmd.Context(), opts)
		},
	}
}
