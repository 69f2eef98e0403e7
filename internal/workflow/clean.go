package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"protonbuild/internal/command"
	"protonbuild/internal/paths"
)

// cleanTarget is one path, or doublestar pattern under root, removed by Clean.
type cleanTarget struct {
	root        string
	pattern     string
	description string
}

// Clean removes build outputs and caches. Every failure is a warning, so
// Clean always returns nil unless ctx is cancelled.
func (b *Builder) Clean(ctx context.Context) error {
	b.printer.Header("Cleaning build artifacts")

	l := b.layout
	targets := []cleanTarget{
		{root: l.CryptoBin(), description: "dotnet-crypto build outputs"},
		{root: filepath.Join(l.Crypto(), "obj"), description: "dotnet-crypto intermediate files"},
		{root: l.CryptoPackOutput(), description: "dotnet-crypto temp NuGet repo"},
		{root: l.SDKSource(), pattern: "**/bin", description: "Proton.SDK build outputs"},
		{root: l.SDKSource(), pattern: "**/obj", description: "Proton.SDK intermediate files"},
		{root: filepath.Join(l.Rust(), "target"), description: "Rust build outputs"},
		{root: filepath.Join(l.Sys(), "target"), description: "proton-sdk-sys build outputs"},
		{root: filepath.Join(l.Sys(), paths.NativeLibs), description: "proton-sdk-sys native libraries"},
		{root: l.NativeLibs(), description: "Native libraries"},
		{root: l.LocalNuGet(), description: "Local NuGet repository"},
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, p := range t.expand() {
			b.remove(p, t.description)
		}
	}

	for _, project := range b.cfg.Rust.Projects {
		dir := l.Join(project)
		if !isDir(dir) {
			continue
		}
		cmd := command.Command{Name: "cargo", Args: []string{"clean"}, Dir: dir}
		if err := b.run(ctx, cmd); err != nil {
			b.printer.Warning("cargo clean failed for %s: %v", project, err)
			continue
		}
		b.printer.Success("cargo clean completed for %s", project)
	}

	locals := command.Command{Name: "dotnet", Args: []string{"nuget", "locals", "all", "--clear"}, Dir: l.Base}
	if err := b.run(ctx, locals); err != nil {
		b.printer.Warning("Could not clear .NET cache: %v", err)
	} else {
		b.printer.Success(".NET NuGet cache cleared")
	}

	b.printer.Success("Clean completed")
	return nil
}

// expand returns the existing paths the target names.
func (t cleanTarget) expand() []string {
	if t.pattern == "" {
		if exists(t.root) {
			return []string{t.root}
		}
		return nil
	}
	if !isDir(t.root) {
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(t.root), t.pattern)
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var out []string
	for _, m := range matches {
		p := filepath.Join(t.root, filepath.FromSlash(m))
		if isDir(p) {
			out = append(out, p)
		}
	}
	return out
}

func (b *Builder) remove(path, description string) {
	if !exists(path) {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		b.printer.Warning("Could not remove %s: %v", path, err)
		return
	}
	b.printer.Success("Removed %s (%s)", path, description)
}
