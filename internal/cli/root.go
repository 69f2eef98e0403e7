// Package cli provides the command-line interface for protonbuild.
//
// The CLI is built on Cobra. The root command runs the build; subcommands
// inspect it without running anything. All commands share an [App] that
// holds the configuration, process runner and printer, so tests can inject
// mocks.
//
// Commands:
//   - protonbuild: run the selected build steps (or clean with --clean)
//   - plan: print the resolved step list
//   - detect: print the detected target and toolchain
//   - status: print the last recorded run
//   - clean: remove build outputs and caches
//
// Use [Execute] as the main entry point, or [RunWithConfig] for testable
// execution that returns an [ExecuteResult] instead of calling os.Exit.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"protonbuild/internal/command"
	"protonbuild/internal/config"
	"protonbuild/internal/output"
	"protonbuild/internal/platform"
	"protonbuild/internal/router"
)

// App holds the dependencies shared by every command.
type App struct {
	// Config is the loaded configuration. A --config flag replaces it
	// before any command runs.
	Config *config.Config

	// Runner executes external tools.
	Runner command.Runner

	// Printer writes user-facing output.
	Printer *output.Printer

	// Target is the host platform. --arch overrides its architecture.
	Target platform.Target

	// WorkDir is the directory base-dir discovery starts from. Empty means
	// the process working directory.
	WorkDir string
}

// options holds flag values for one invocation.
type options struct {
	configPath string
	baseDir    string
	arch       string
	step       string
	exclude    []string
	clean      bool
	skipClone  bool
}

// NewRootCommand creates the root command and its subcommands.
func NewRootCommand(app *App) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "protonbuild",
		Short: "Build the Proton SDK native libraries and bindings",
		Long: `protonbuild clones the Proton SDK sources, builds the native crypto
library and NuGet package, publishes the SDK's C exports ahead-of-time,
and stages everything the Rust bindings need.

Steps run in order: clone, crypto, protos, sdk. Use --step to run one step
(rust runs the bindings against the staged output) and --exclude to skip.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.prepare(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.clean {
				return app.runClean(cmd.Context(), opts)
			}
			return app.runBuild(cmd.Context(), opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (overrides discovery)")
	flags.StringVar(&opts.baseDir, "base-dir", "", "workspace root (default: discovered from the working directory)")
	flags.StringVar(&opts.arch, "arch", "", "target architecture: amd64, arm64 or 386 (default: host)")
	flags.StringVar(&opts.step, "step", router.SelectorAll, fmt.Sprintf("step to run: %v", router.Selectors()))
	flags.StringArrayVar(&opts.exclude, "exclude", nil, fmt.Sprintf("step to skip, repeatable: %v", router.Known()))

	rootCmd.Flags().BoolVar(&opts.clean, "clean", false, "remove build outputs and caches, then exit")
	rootCmd.Flags().BoolVar(&opts.skipClone, "skip-clone", false, "skip the clone step")
	_ = rootCmd.Flags().MarkDeprecated("skip-clone", "use --exclude clone")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	rootCmd.AddCommand(
		newPlanCommand(app, opts),
		newDetectCommand(app, opts),
		newStatusCommand(app, opts),
		newCleanCommand(app, opts),
	)

	return rootCmd
}

// ExecuteResult contains the result of CLI execution.
//
// This enables testing without os.Exit calls.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithConfig creates the root command with cfg and executes it, returning
// the exit code instead of exiting.
func RunWithConfig(cfg *config.Config) ExecuteResult {
	printer := output.NewPrinter()
	if cfg.Output.NoColor {
		printer.DisableColor()
	}

	app := &App{
		Config:  cfg,
		Runner:  command.NewExecRunner(os.Stdout),
		Printer: printer,
		Target:  platform.Detect(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := NewRootCommand(app)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := exitCodeFor(err)
		if _, ok := IsExitError(err); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if code == 2 {
				fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", rootCmd.CommandPath())
			}
		}
		return ExecuteResult{ExitCode: code, Err: err}
	}
	return ExecuteResult{ExitCode: 0, Err: nil}
}

// Execute loads configuration, runs the CLI and exits with its code.
func Execute() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	result := RunWithConfig(cfg)
	os.Exit(result.ExitCode)
}

// prepare applies --config and configures logging before any command runs.
func (app *App) prepare(cmd *cobra.Command, opts *options) error {
	if opts.configPath != "" {
		cfg, err := config.NewLoader().LoadFromFile(opts.configPath)
		if err != nil {
			return err
		}
		app.Config = cfg
		if cfg.Output.NoColor {
			app.Printer.DisableColor()
		}
	}

	setupLogging(app.Config.Log, cmd.ErrOrStderr())
	return nil
}
