package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cp "github.com/otiai10/copy"

	"protonbuild/internal/command"
	"protonbuild/internal/nupkg"
	"protonbuild/internal/platform"
	"protonbuild/internal/toolchain"
)

// Crypto builds the native crypto library, packs the managed wrapper, injects
// the native library into the package, and moves the package into the local
// NuGet repository.
//
// Native build failures are warnings. Registering the NuGet source and
// packing are the only failures returned.
func (b *Builder) Crypto(ctx context.Context) error {
	b.buildNative(ctx)

	packDir := b.layout.CryptoPackOutput()
	if err := ensureDir(packDir); err != nil {
		return err
	}
	if err := ensureDir(b.layout.LocalNuGet()); err != nil {
		return err
	}

	if err := b.registerSource(ctx); err != nil {
		return err
	}

	pack := command.Command{
		Name: "dotnet",
		Args: []string{
			"pack", "-c", "Release",
			"-p:Version=" + b.cfg.Crypto.PackageVersion,
			b.layout.CryptoProject(),
			"--output", packDir,
		},
		Dir: b.layout.Crypto(),
	}
	if err := b.run(ctx, pack); err != nil {
		return fmt.Errorf("failed to pack crypto package: %w", err)
	}

	b.injectNative(packDir)

	moved, err := moveFiles(packDir, b.layout.LocalNuGet())
	if err != nil {
		return fmt.Errorf("failed to move packages: %w", err)
	}
	for _, name := range moved {
		b.printer.Success("Moved %s to %s", name, b.layout.LocalNuGet())
	}
	return nil
}

// registerSource removes and re-adds the local NuGet source so it always
// points at the current base directory.
func (b *Builder) registerSource(ctx context.Context) error {
	name := b.cfg.Crypto.NuGetSource

	remove := command.Command{
		Name: "dotnet",
		Args: []string{"nuget", "remove", "source", name},
		Dir:  b.layout.Crypto(),
	}
	if err := b.run(ctx, remove); err != nil {
		b.printer.Info("%s source didn't exist, continuing", name)
	}

	add := command.Command{
		Name: "dotnet",
		Args: []string{"nuget", "add", "source", b.layout.LocalNuGet(), "--name", name},
		Dir:  b.layout.Crypto(),
	}
	if err := b.run(ctx, add); err != nil {
		return fmt.Errorf("failed to add NuGet source %s: %w", name, err)
	}
	b.printer.Success("Added %s source: %s", name, b.layout.LocalNuGet())
	return nil
}

// buildNative compiles the Go crypto sources once per configured build mode.
func (b *Builder) buildNative(ctx context.Context) {
	src := b.layout.CryptoGoSource()
	if !isDir(src) {
		b.printer.Warning("Go source directory not found at %s, skipping native build", src)
		return
	}

	tc, err := b.resolver.Resolve(ctx, b.target)
	if err != nil {
		b.printer.Warning("No native toolchain for %s, skipping native build: %v", b.target, err)
		return
	}
	b.printer.Info("Using %s toolchain for %s", tc.Candidate.Name, b.target)

	outDir := b.layout.CryptoNative(b.target.RuntimeID())
	if err := ensureDir(outDir); err != nil {
		b.printer.Warning("%v", err)
		return
	}

	for _, raw := range b.cfg.Crypto.BuildModes {
		mode := platform.BuildMode(raw)
		file, ok := b.target.LibraryFile(b.cfg.Crypto.LibraryName, mode)
		if !ok {
			b.printer.Warning("Skipping unsupported %s mode for %s", mode, b.target)
			continue
		}
		out := filepath.Join(outDir, file)

		used, err := b.resolver.Build(ctx, tc, func(ctx context.Context, tc toolchain.Config) error {
			return b.run(ctx, b.goBuild(tc, mode, out))
		})
		if err != nil {
			b.printer.Warning("Go build failed for %s, skipping: %v", mode, err)
			continue
		}
		if used.Candidate.Name != tc.Candidate.Name {
			b.printer.Warning("Built %s with %s after %s failed", file, used.Candidate.Name, tc.Candidate.Name)
		}
		b.printer.Success("Built %s", file)

		if b.target.IsWindows() && mode == platform.BuildModeArchive {
			lib := strings.TrimSuffix(out, filepath.Ext(out)) + ".lib"
			if err := cp.Copy(out, lib); err != nil {
				b.printer.Warning("Could not create %s: %v", filepath.Base(lib), err)
				continue
			}
			b.printer.Success("Created %s for MSVC linking", filepath.Base(lib))
		}
	}
}

// goBuild returns the go build invocation for one mode. The toolchain
// overlay is applied over the base cgo settings.
func (b *Builder) goBuild(tc toolchain.Config, mode platform.BuildMode, out string) command.Command {
	env := command.Overlay(map[string]string{
		"GOFLAGS":     "-trimpath",
		"CGO_ENABLED": "1",
		"CGO_LDFLAGS": "-s -w",
		"GOOS":        b.target.GOOS(),
		"GOARCH":      b.target.GOARCH(),
	}, tc.Env)

	if b.target.GOOS() == "android" && mode == platform.BuildModeShared {
		env["CGO_LDFLAGS"] = "-Wl,-soname," + filepath.Base(out)
	}

	return command.Command{
		Name: "go",
		Args: []string{"build", "-C", b.layout.CryptoGoSource(), "-buildmode=" + string(mode), "-o", out},
		Dir:  b.layout.Crypto(),
		Env:  env,
	}
}

// injectNative adds the built native libraries to the first package in
// packDir. Every problem here is a warning.
func (b *Builder) injectNative(packDir string) {
	pkgs, err := filepath.Glob(filepath.Join(packDir, "*.nupkg"))
	if err != nil || len(pkgs) == 0 {
		b.printer.Warning("No package found in %s", packDir)
		return
	}
	sort.Strings(pkgs)
	pkg := pkgs[0]

	var injections []nupkg.Injection
	if isDir(b.layout.CryptoBin()) {
		injections, err = nupkg.FindInjections(b.layout.CryptoBin(), b.cfg.Crypto.LibraryName)
		if err != nil {
			b.printer.Warning("%v", err)
			return
		}
	}

	res, err := nupkg.Repackage(pkg, injections)
	if errors.Is(err, nupkg.ErrNoInjections) {
		b.printer.Warning("No native libraries found in %s", b.layout.CryptoBin())
		return
	}
	if err != nil {
		b.printer.Warning("Could not update %s: %v", filepath.Base(pkg), err)
		return
	}
	for _, entry := range res.Injected {
		slog.Debug("injected native library", "package", filepath.Base(pkg), "entry", entry)
	}
	b.printer.Success("Updated %s with %d native libraries", filepath.Base(pkg), len(res.Injected))
}

// moveFiles moves the regular files in src into dst, replacing existing
// files. It returns the moved file names in sorted order.
func moveFiles(src, dst string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}

	var moved []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		target := filepath.Join(dst, e.Name())
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return moved, err
		}
		if err := os.Rename(filepath.Join(src, e.Name()), target); err != nil {
			return moved, err
		}
		moved = append(moved, e.Name())
	}
	return moved, nil
}
