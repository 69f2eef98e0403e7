package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"protonbuild/internal/command"
	"protonbuild/internal/stage"
)

// SDK publishes the C-exports project ahead-of-time for the target runtime
// and stages the output into native-libs/<rid>.
func (b *Builder) SDK(ctx context.Context) error {
	if !isDir(b.layout.SDK()) {
		return fmt.Errorf("sdk checkout not found at %s, run the clone step first", b.layout.SDK())
	}
	project := b.layout.DriveProject()
	if !exists(project) {
		return fmt.Errorf("project not found at %s", project)
	}

	rid := b.target.RuntimeID()
	b.printer.Info("Building AOT library for runtime: %s", rid)

	restore := command.Command{
		Name: "dotnet",
		Args: []string{"restore", project},
		Dir:  b.layout.SDK(),
	}
	if err := b.run(ctx, restore); err != nil {
		b.printer.Warning("Package restore failed, continuing with build: %v", err)
	}

	publish := command.Command{
		Name: "dotnet",
		Args: []string{"publish", project, "-r", rid, "--self-contained", "-p:PublishAot=true"},
		Dir:  b.layout.SDK(),
	}
	if err := b.run(ctx, publish); err != nil {
		return fmt.Errorf("AOT compilation failed: %w", err)
	}
	b.printer.Success("AOT compilation completed for %s", rid)

	return b.stageNative(b.publishSources())
}

// publishSources are the AOT output directories of the C-exports project.
func (b *Builder) publishSources() []string {
	out := filepath.Join(b.layout.DriveOutput(b.cfg.SDK.Framework), b.target.RuntimeID())
	return []string{filepath.Join(out, "publish"), out}
}

// buildSources extends publishSources with any Release output under the
// SDK source tree, for workspaces built outside this tool.
func (b *Builder) buildSources() []string {
	src := filepath.ToSlash(b.layout.SDKSource())
	return append(b.publishSources(),
		src+"/**/bin/Release/"+b.cfg.SDK.Framework,
		src+"/**/bin/Release/net*.0",
	)
}

// stageNative copies the first existing source into native-libs/<rid>.
// A missing source is a warning.
func (b *Builder) stageNative(sources []string) error {
	res, err := b.stager.Stage(stage.Request{
		Sources:         sources,
		Target:          b.layout.NativeLibs(),
		RuntimeID:       b.target.RuntimeID(),
		ExcludeSuffixes: b.cfg.SDK.ExcludeSuffixes,
	})
	if errors.Is(err, stage.ErrSourceMissing) {
		b.printer.Warning("No SDK output found for %s", b.target.RuntimeID())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stage native libraries: %w", err)
	}

	for _, f := range res.Skipped {
		b.printer.Info("Skipped %s", f)
	}
	b.printer.Success("Copied %d files from %s to %s", len(res.Copied), res.Source, res.Destination)
	return nil
}
