// Package workflow provides the concrete build steps for protonbuild.
//
// Each step is an idempotent action over the workspace layout: cloning the
// source repositories, building and packing the crypto library, copying
// protobuf definitions, publishing the SDK's native library, and running the
// Rust bindings against the staged output. Clean mode removes everything the
// steps produce.
//
// Key types:
//   - [Builder] owns the collaborators every step needs and produces
//     [pipeline.Step] values for the executor
//
// Every external process goes through a [command.Runner] with an explicit
// working directory, so steps never change the process working directory.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"protonbuild/internal/command"
	"protonbuild/internal/config"
	"protonbuild/internal/output"
	"protonbuild/internal/paths"
	"protonbuild/internal/pipeline"
	"protonbuild/internal/platform"
	"protonbuild/internal/router"
	"protonbuild/internal/stage"
	"protonbuild/internal/toolchain"
)

// Builder produces and runs the build steps for one target.
//
// Create with [NewBuilder]; the zero value is not usable.
type Builder struct {
	runner   command.Runner
	printer  *output.Printer
	cfg      *config.Config
	layout   paths.Layout
	target   platform.Target
	resolver *toolchain.Resolver
	stager   *stage.Stager
}

// NewBuilder creates a Builder. All collaborators are required.
func NewBuilder(runner command.Runner, printer *output.Printer, cfg *config.Config, layout paths.Layout, target platform.Target, resolver *toolchain.Resolver) *Builder {
	return &Builder{
		runner:   runner,
		printer:  printer,
		cfg:      cfg,
		layout:   layout,
		target:   target,
		resolver: resolver,
		stager:   stage.NewStager(),
	}
}

// Steps returns the [pipeline.Step] for each id, in the given order. Ids
// are canonicalized, so the "dll" alias is accepted.
func (b *Builder) Steps(ids []string) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(ids))
	for _, id := range ids {
		s, err := b.Step(id)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Step returns the [pipeline.Step] for a single id.
func (b *Builder) Step(id string) (pipeline.Step, error) {
	canonical, err := router.Canonical(id)
	if err != nil {
		return pipeline.Step{}, err
	}

	switch canonical {
	case router.StepClone:
		return pipeline.Step{ID: canonical, Description: "Repository cloning", Action: b.Clone, Fatal: true}, nil
	case router.StepCrypto:
		return pipeline.Step{ID: canonical, Description: "dotnet-crypto build", Action: b.Crypto, Fatal: true}, nil
	case router.StepProtos:
		return pipeline.Step{ID: canonical, Description: "Protobuf copying", Action: b.Protos}, nil
	case router.StepSDK:
		return pipeline.Step{ID: canonical, Description: "Proton.SDK build", Action: b.SDK}, nil
	case router.StepRust:
		return pipeline.Step{ID: canonical, Description: "proton-sdk-rs build", Action: b.Rust}, nil
	}
	return pipeline.Step{}, fmt.Errorf("%w: %s", router.ErrUnknownStep, id)
}

// run echoes and executes cmd.
func (b *Builder) run(ctx context.Context, cmd command.Command) error {
	b.printer.Command(cmd.String())
	slog.Debug("running command", "command", cmd.String(), "dir", cmd.Dir)
	_, err := b.runner.Run(ctx, cmd)
	return err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}
