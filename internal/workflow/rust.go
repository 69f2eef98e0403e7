package workflow

import (
	"context"

	"protonbuild/internal/command"
)

// Rust stages the SDK output and protobuf definitions, then runs the
// configured cargo package in each Rust project. Cargo failures and missing
// projects are warnings.
func (b *Builder) Rust(ctx context.Context) error {
	if err := b.stageNative(b.buildSources()); err != nil {
		return err
	}
	if err := b.Protos(ctx); err != nil {
		b.printer.Warning("%v", err)
	}

	env := map[string]string{b.cfg.Rust.LibDirEnv: b.layout.NativeLibs()}
	for _, project := range b.cfg.Rust.Projects {
		dir := b.layout.Join(project)
		if !isDir(dir) {
			b.printer.Warning("%s directory not found at %s, skipping cargo run", project, dir)
			continue
		}

		cmd := command.Command{
			Name: "cargo",
			Args: []string{"run", "-p", b.cfg.Rust.Package},
			Dir:  dir,
			Env:  env,
		}
		if err := b.run(ctx, cmd); err != nil {
			b.printer.Warning("cargo run failed for %s: %v", project, err)
			continue
		}
		b.printer.Success("%s completed for %s", b.cfg.Rust.Package, project)
	}
	return nil
}
