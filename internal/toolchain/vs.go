package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"protonbuild/internal/command"
	"protonbuild/internal/platform"
)

// ErrVSNotFound indicates no Visual Studio installation could be located.
var ErrVSNotFound = errors.New("visual studio installation not found")

// vsVariables are the developer-environment variables merged into an MSVC
// build environment.
var vsVariables = []string{
	"INCLUDE",
	"LIB",
	"LIBPATH",
	"PATH",
	"WindowsSdkVersion",
	"WindowsSdkDir",
	"UCRTVersion",
	"VCToolsVersion",
	"VCINSTALLDIR",
}

var vsEditions = []string{"Enterprise", "Professional", "Community", "BuildTools"}

// VSLocator implements [Locator] using vswhere and well-known install paths.
type VSLocator struct {
	runner command.Runner
	getenv func(string) string
	exists func(string) bool
}

// NewVSLocator creates a [VSLocator] that runs vswhere and vcvarsall via runner.
func NewVSLocator(runner command.Runner) *VSLocator {
	return &VSLocator{
		runner: runner,
		getenv: os.Getenv,
		exists: func(p string) bool {
			_, err := os.Stat(p)
			return err == nil
		},
	}
}

// Environment locates Visual Studio, runs its vcvarsall script for the
// target architecture, and returns the selected variables.
func (l *VSLocator) Environment(ctx context.Context, target platform.Target) (string, map[string]string, error) {
	install, err := l.find(ctx)
	if err != nil {
		return "", nil, err
	}

	script := filepath.Join(install, "VC", "Auxiliary", "Build", "vcvarsall.bat")
	if !l.exists(script) {
		return "", nil, fmt.Errorf("%s: %w", script, ErrVSNotFound)
	}

	res, err := l.runner.Run(ctx, command.Command{
		Name:  "cmd",
		Args:  []string{"/c", "call", script, vcvarsArch(target), ">nul", "&&", "set"},
		Quiet: true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to source %s: %w", script, err)
	}

	return install, selectVariables(command.ParseEnv(res.Stdout)), nil
}

// find returns the newest Visual Studio installation directory.
func (l *VSLocator) find(ctx context.Context) (string, error) {
	vswhere := filepath.Join(l.getenv("ProgramFiles(x86)"), "Microsoft Visual Studio", "Installer", "vswhere.exe")
	if l.exists(vswhere) {
		res, err := l.runner.Run(ctx, command.Command{
			Name:  vswhere,
			Args:  []string{"-latest", "-products", "*", "-property", "installationPath"},
			Quiet: true,
		})
		if err == nil {
			if install := strings.TrimSpace(res.Stdout); install != "" && l.exists(install) {
				return install, nil
			}
		}
	}

	for _, root := range []string{l.getenv("ProgramFiles"), l.getenv("ProgramFiles(x86)")} {
		if root == "" {
			continue
		}
		for _, version := range []string{"2022", "2019"} {
			for _, edition := range vsEditions {
				dir := filepath.Join(root, "Microsoft Visual Studio", version, edition)
				if l.exists(dir) {
					return dir, nil
				}
			}
		}
	}

	return "", ErrVSNotFound
}

// vcvarsArch maps a target to the vcvarsall architecture argument.
func vcvarsArch(target platform.Target) string {
	switch target.GOARCH() {
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	default:
		return "x64"
	}
}

// selectVariables picks vsVariables out of env, matching keys
// case-insensitively and returning them under their canonical names.
func selectVariables(env map[string]string) map[string]string {
	byUpper := make(map[string]string, len(env))
	for k, v := range env {
		byUpper[strings.ToUpper(k)] = v
	}

	out := make(map[string]string)
	for _, name := range vsVariables {
		if v, ok := byUpper[strings.ToUpper(name)]; ok {
			out[name] = v
		}
	}
	return out
}
