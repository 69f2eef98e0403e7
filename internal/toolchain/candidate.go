// Package toolchain selects the native C compiler used for cgo builds.
//
// On non-Windows targets a single system compiler is assumed and selected
// without probing. On Windows, candidates are probed strictly in preference
// order and the first available one wins:
//  1. MSVC (cl)
//  2. LLVM clang-cl (MSVC-compatible front-end)
//  3. MinGW-w64 GCC
//
// An MSVC-family winner additionally gets the Visual Studio developer
// environment (include, library and executable search paths, SDK version)
// merged into its overlay when an installation can be located. If a build
// later fails with the selected compiler, [Resolver.Build] retries once with
// the MinGW overlay before giving up.
//
// Key types:
//   - [Candidate] is one compiler front-end with its probe and env overlay
//   - [Resolver] performs selection and build-time fallback
//   - [Config] is the selected toolchain for a target
package toolchain

import (
	"protonbuild/internal/command"
	"protonbuild/internal/platform"
)

// Family groups compilers that share environment requirements.
type Family string

const (
	// FamilyDefault is the fixed system compiler on non-Windows targets.
	FamilyDefault Family = "default"

	// FamilyMSVC covers cl and clang-cl, which need the Visual Studio environment.
	FamilyMSVC Family = "msvc"

	// FamilyMinGW is MinGW-w64 GCC.
	FamilyMinGW Family = "mingw"
)

// Candidate is one native compiler front-end considered during resolution.
type Candidate struct {
	// Rank is the preference order; lower ranks are probed first.
	Rank int

	// Name identifies the candidate in output ("msvc", "clang-cl", "mingw", "gcc").
	Name string

	// Family determines whether the Visual Studio environment is sourced.
	Family Family

	// Probe is the version-check invocation. A zero-valued Probe means the
	// candidate is selected without probing.
	Probe command.Command

	// Env is the overlay applied to the build environment when selected.
	Env map[string]string
}

// Config is the resolved toolchain for a target.
type Config struct {
	// Target is the platform the toolchain was resolved for.
	Target platform.Target

	// Candidate is the selected compiler front-end.
	Candidate Candidate

	// Env is the full overlay: the candidate's env plus any sourced
	// Visual Studio variables.
	Env map[string]string

	// VSInstall is the Visual Studio installation whose environment was
	// sourced, or empty if none was.
	VSInstall string
}

// DefaultCandidate is the fixed compiler for non-Windows targets.
func DefaultCandidate() Candidate {
	return Candidate{
		Rank:   0,
		Name:   "gcc",
		Family: FamilyDefault,
		Env:    map[string]string{"CC": "gcc"},
	}
}

// MinGWCandidate is the MinGW-w64 GCC front-end. It is the last Windows
// candidate and the build-time fallback.
func MinGWCandidate() Candidate {
	return Candidate{
		Rank:   3,
		Name:   "mingw",
		Family: FamilyMinGW,
		Probe:  command.Command{Name: "gcc", Args: []string{"--version"}},
		Env: map[string]string{
			"CC":          "gcc",
			"CXX":         "g++",
			"CGO_CFLAGS":  "-O2",
			"CGO_LDFLAGS": "-s -w -static -static-libgcc -static-libstdc++",
		},
	}
}

// WindowsCandidates returns the Windows candidates in preference order.
func WindowsCandidates() []Candidate {
	return []Candidate{
		{
			Rank:   1,
			Name:   "msvc",
			Family: FamilyMSVC,
			Probe:  command.Command{Name: "cl"},
			Env: map[string]string{
				"CC":         "cl",
				"CXX":        "cl",
				"CGO_CFLAGS": "-O2",
			},
		},
		{
			Rank:   2,
			Name:   "clang-cl",
			Family: FamilyMSVC,
			Probe:  command.Command{Name: "clang-cl", Args: []string{"--version"}},
			Env: map[string]string{
				"CC":         "clang-cl",
				"CXX":        "clang-cl",
				"CGO_CFLAGS": "-O2",
			},
		},
		MinGWCandidate(),
	}
}
