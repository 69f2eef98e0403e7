package cli

import (
	"github.com/spf13/cobra"

	"protonbuild/internal/platform"
)

func newDetectCommand(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Print the detected target and toolchain",
		Long: `Print the target platform tokens used by the build and the native
toolchain that would be selected. On Windows this probes the compiler
candidates.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.newSession(opts)
			if err != nil {
				app.Printer.Error("%v", err)
				return NewExitError(exitCodeFor(err))
			}

			t := s.target
			p := app.Printer
			p.Header("Target")
			p.KeyValue("OS", t.OS())
			p.KeyValue("GOOS", t.GOOS())
			p.KeyValue("GOARCH", t.GOARCH())
			p.KeyValue("Runtime", t.RuntimeID())
			if shared, ok := t.LibraryFile(app.Config.Crypto.LibraryName, platform.BuildModeShared); ok {
				p.KeyValue("Shared lib", shared)
			}
			if archive, ok := t.LibraryFile(app.Config.Crypto.LibraryName, platform.BuildModeArchive); ok {
				p.KeyValue("Static lib", archive)
			}
			p.KeyValue("Base dir", s.layout.Base)
			if !t.Known() {
				p.Warning("Unrecognized OS %q, using default library naming", t.OS())
			}

			tc, err := s.resolver.Resolve(cmd.Context(), t)
			if err != nil {
				p.Warning("No native toolchain found: %v", err)
				return nil
			}
			p.KeyValue("Toolchain", tc.Candidate.Name)
			if tc.VSInstall != "" {
				p.KeyValue("Visual Studio", tc.VSInstall)
			}
			return nil
		},
	}
}
