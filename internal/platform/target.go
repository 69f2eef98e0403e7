// Package platform detects the host OS family and CPU architecture and
// normalizes them into the naming schemes each toolchain expects.
//
// Three schemes coexist in a single build:
//   - cgo tokens ([Target.GOOS], [Target.GOARCH]) passed to the Go compiler
//   - the generic OS family ([Target.OS]) used for filesystem conventions
//   - the .NET runtime identifier ([Target.RuntimeID]), e.g. "linux-x64"
//
// A [Target] is only ever constructed from a raw (OS, machine) pair via
// [NewTarget] or [Detect]; every derived token is computed from that pair, so
// no token can drift from its source. Unknown inputs are never rejected: they
// pass through verbatim and [Target.Known] reports false.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// BuildMode is a cgo build mode producing a native library.
type BuildMode string

const (
	// BuildModeShared produces a shared library (-buildmode=c-shared).
	BuildModeShared BuildMode = "c-shared"

	// BuildModeArchive produces a static archive (-buildmode=c-archive).
	BuildModeArchive BuildMode = "c-archive"
)

// osInfo is one row of the OS lookup table.
type osInfo struct {
	goos      string
	family    string
	runtimeOS string
	naming    libraryNaming
}

// libraryNaming describes native library file names for an OS.
// An empty suffix means the build mode is unsupported on that OS.
type libraryNaming struct {
	prefix       string
	sharedSuffix string
	staticSuffix string
}

var osTable = map[string]osInfo{
	"windows": {goos: "windows", family: "windows", runtimeOS: "win", naming: libraryNaming{sharedSuffix: ".dll", staticSuffix: ".a"}},
	"darwin":  {goos: "darwin", family: "macos", runtimeOS: "osx", naming: libraryNaming{sharedSuffix: ".dylib", staticSuffix: ".a"}},
	"macos":   {goos: "darwin", family: "macos", runtimeOS: "osx", naming: libraryNaming{sharedSuffix: ".dylib", staticSuffix: ".a"}},
	"linux":   {goos: "linux", family: "linux", runtimeOS: "linux", naming: libraryNaming{prefix: "lib", sharedSuffix: ".so", staticSuffix: ".a"}},
	"android": {goos: "android", family: "android", runtimeOS: "linux-bionic", naming: libraryNaming{prefix: "lib", sharedSuffix: ".so"}},
	"ios":     {goos: "ios", family: "ios", runtimeOS: "ios", naming: libraryNaming{staticSuffix: ".a"}},
}

// unknownNaming is the best-effort convention for operating systems outside
// the table.
var unknownNaming = libraryNaming{prefix: "lib", sharedSuffix: ".so", staticSuffix: ".a"}

var archTable = map[string]string{
	"x86_64":  "amd64",
	"amd64":   "amd64",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"i386":    "386",
	"i686":    "386",
	"x86":     "386",
	"386":     "386",
}

// runtimeArchTable maps GOARCH tokens to .NET runtime architecture tokens.
var runtimeArchTable = map[string]string{
	"amd64": "x64",
}

// Target is a normalized (OS, architecture) pair with its derived tokens.
//
// The zero value is not useful; construct with [NewTarget] or [Detect].
type Target struct {
	rawOS   string
	rawArch string
	info    osInfo
	known   bool
	goarch  string
}

// NewTarget normalizes a raw OS name (e.g. "Linux", "Darwin", "windows") and
// raw machine name (e.g. "x86_64", "aarch64", "amd64").
func NewTarget(rawOS, rawArch string) Target {
	osKey := strings.ToLower(strings.TrimSpace(rawOS))
	archKey := strings.ToLower(strings.TrimSpace(rawArch))

	info, known := osTable[osKey]
	if !known {
		info = osInfo{goos: osKey, family: osKey, runtimeOS: osKey, naming: unknownNaming}
	}

	goarch, ok := archTable[archKey]
	if !ok {
		goarch = archKey
	}

	return Target{
		rawOS:   rawOS,
		rawArch: rawArch,
		info:    info,
		known:   known,
		goarch:  goarch,
	}
}

// Detect returns the [Target] for the host running this process.
func Detect() Target {
	return NewTarget(runtime.GOOS, runtime.GOARCH)
}

// WithArch returns a target for the same OS and a different raw architecture.
// Used for an explicit --arch override.
func (t Target) WithArch(rawArch string) Target {
	return NewTarget(t.rawOS, rawArch)
}

// OS returns the generic OS family ("windows", "macos", "linux", ...).
func (t Target) OS() string { return t.info.family }

// GOOS returns the cgo OS token ("windows", "darwin", "linux", ...).
func (t Target) GOOS() string { return t.info.goos }

// GOARCH returns the cgo architecture token ("amd64", "arm64", "386", ...).
func (t Target) GOARCH() string { return t.goarch }

// RuntimeOS returns the .NET runtime identifier OS segment ("win", "osx", "linux").
func (t Target) RuntimeOS() string { return t.info.runtimeOS }

// RuntimeArch returns the .NET runtime architecture token.
// Only amd64 is renamed (to x64); every other token passes through.
func (t Target) RuntimeArch() string {
	if a, ok := runtimeArchTable[t.goarch]; ok {
		return a
	}
	return t.goarch
}

// RuntimeID returns the .NET runtime identifier, e.g. "linux-x64" or "osx-arm64".
func (t Target) RuntimeID() string {
	return t.RuntimeOS() + "-" + t.RuntimeArch()
}

// IsWindows reports whether the target OS family is Windows.
func (t Target) IsWindows() bool { return t.info.family == "windows" }

// Known reports whether the OS was found in the lookup table.
func (t Target) Known() bool { return t.known }

// LibraryFile returns the native library file name for the given base name
// and build mode. The boolean is false when the mode is unsupported on the
// target OS (e.g. c-shared on iOS).
func (t Target) LibraryFile(name string, mode BuildMode) (string, bool) {
	n := t.info.naming
	switch mode {
	case BuildModeShared:
		if n.sharedSuffix == "" {
			return "", false
		}
		return n.prefix + name + n.sharedSuffix, true
	case BuildModeArchive:
		if n.staticSuffix == "" {
			return "", false
		}
		return n.prefix + name + n.staticSuffix, true
	}
	return "", false
}

// String returns "<os>/<arch>" using generic family and cgo arch.
func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.OS(), t.GOARCH())
}
