package toolchain

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonbuild/internal/command"
	"protonbuild/internal/platform"
)

// fakeLocator records Environment calls and returns a scripted result.
type fakeLocator struct {
	install string
	env     map[string]string
	err     error
	calls   int
}

func (f *fakeLocator) Environment(ctx context.Context, target platform.Target) (string, map[string]string, error) {
	f.calls++
	if f.err != nil {
		return "", nil, f.err
	}
	return f.install, f.env, nil
}

var (
	windows = platform.NewTarget("Windows", "AMD64")
	linux   = platform.NewTarget("Linux", "x86_64")
	darwin  = platform.NewTarget("Darwin", "arm64")
)

func TestResolve_NonWindowsNeverProbes(t *testing.T) {
	for _, target := range []platform.Target{linux, darwin} {
		t.Run(target.String(), func(t *testing.T) {
			mock := &command.MockRunner{}
			locator := &fakeLocator{}
			r := NewResolver(mock, WithLocator(locator))

			cfg, err := r.Resolve(context.Background(), target)

			require.NoError(t, err)
			assert.Equal(t, "gcc", cfg.Candidate.Name)
			assert.Equal(t, FamilyDefault, cfg.Candidate.Family)
			assert.Equal(t, "gcc", cfg.Env["CC"])
			assert.Empty(t, mock.Commands, "no probes on non-windows targets")
			assert.Zero(t, locator.calls)
		})
	}
}

func TestResolve_WindowsOnlyMinGW(t *testing.T) {
	mock := &command.MockRunner{
		Failures: map[string]error{
			"cl":       command.ErrNotFound,
			"clang-cl": &command.ExitError{Command: "clang-cl --version", Code: 1},
		},
	}
	locator := &fakeLocator{install: "C:\\VS"}
	r := NewResolver(mock, WithLocator(locator))

	cfg, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, "mingw", cfg.Candidate.Name)
	assert.Equal(t, "g++", cfg.Env["CXX"])
	assert.Contains(t, cfg.Env["CGO_LDFLAGS"], "-static-libgcc")
	assert.Equal(t, []string{"cl", "clang-cl --version", "gcc --version"}, mock.Lines())
	assert.Zero(t, locator.calls, "msvc environment must not be sourced for mingw")
	assert.Empty(t, cfg.VSInstall)
}

func TestResolve_WindowsFirstSuccessStops(t *testing.T) {
	mock := &command.MockRunner{}
	locator := &fakeLocator{
		install: "C:\\VS\\2022\\Community",
		env:     map[string]string{"INCLUDE": "C:\\inc", "PATH": "C:\\vc\\bin"},
	}
	r := NewResolver(mock, WithLocator(locator))

	cfg, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, "msvc", cfg.Candidate.Name)
	assert.Equal(t, []string{"cl"}, mock.Lines(), "lower ranked candidates are not probed")
	assert.Equal(t, 1, locator.calls)
	assert.Equal(t, "C:\\inc", cfg.Env["INCLUDE"])
	assert.Equal(t, "cl", cfg.Env["CC"])
	assert.Equal(t, "C:\\VS\\2022\\Community", cfg.VSInstall)
}

func TestResolve_ClangCLSourcesEnvironment(t *testing.T) {
	mock := &command.MockRunner{Failures: map[string]error{"cl": command.ErrNotFound}}
	locator := &fakeLocator{install: "C:\\VS", env: map[string]string{"LIB": "C:\\lib"}}
	r := NewResolver(mock, WithLocator(locator))

	cfg, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, "clang-cl", cfg.Candidate.Name)
	assert.Equal(t, 1, locator.calls)
	assert.Equal(t, "C:\\lib", cfg.Env["LIB"])
}

func TestResolve_VSSourcingFailureIsNonFatal(t *testing.T) {
	mock := &command.MockRunner{}
	locator := &fakeLocator{err: ErrVSNotFound}
	r := NewResolver(mock, WithLocator(locator))

	cfg, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, "msvc", cfg.Candidate.Name)
	assert.Empty(t, cfg.VSInstall)
	assert.NotContains(t, cfg.Env, "INCLUDE")
}

func TestResolve_Unresolved(t *testing.T) {
	mock := &command.MockRunner{
		Failures: map[string]error{
			"cl":       command.ErrNotFound,
			"clang-cl": command.ErrTimeout,
			"gcc":      command.ErrNotFound,
		},
	}
	r := NewResolver(mock, WithLocator(nil))

	_, err := r.Resolve(context.Background(), windows)

	assert.ErrorIs(t, err, ErrUnresolved)
	assert.Len(t, mock.Commands, 3)
}

func TestResolve_ProbeTimeoutApplied(t *testing.T) {
	mock := &command.MockRunner{}
	r := NewResolver(mock, WithLocator(nil), WithProbeTimeout(3*time.Second))

	_, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	require.NotEmpty(t, mock.Commands)
	assert.Equal(t, 3*time.Second, mock.Commands[0].Timeout)
}

func TestResolve_CustomCandidatesSortedByRank(t *testing.T) {
	mock := &command.MockRunner{Failures: map[string]error{"b": command.ErrNotFound}}
	r := NewResolver(mock, WithLocator(nil), WithCandidates([]Candidate{
		{Rank: 2, Name: "a", Family: FamilyMinGW, Probe: command.Command{Name: "a"}},
		{Rank: 1, Name: "b", Family: FamilyMinGW, Probe: command.Command{Name: "b"}},
	}))

	cfg, err := r.Resolve(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Candidate.Name)
	assert.Equal(t, []string{"b", "a"}, mock.Lines())
}

func TestBuild_Fallback(t *testing.T) {
	msvc := Config{Target: windows, Candidate: WindowsCandidates()[0], Env: map[string]string{"CC": "cl"}}
	mingw := Config{Target: windows, Candidate: MinGWCandidate(), Env: MinGWCandidate().Env}
	gcc := Config{Target: linux, Candidate: DefaultCandidate(), Env: DefaultCandidate().Env}
	buildErr := errors.New("link failed")

	tests := []struct {
		name         string
		cfg          Config
		disable      bool
		failWith     map[string]error
		wantAttempts []string
		wantUsed     string
		wantErr      bool
	}{
		{
			name:         "first attempt succeeds",
			cfg:          msvc,
			wantAttempts: []string{"cl"},
			wantUsed:     "msvc",
		},
		{
			name:         "msvc fails then mingw succeeds",
			cfg:          msvc,
			failWith:     map[string]error{"cl": buildErr},
			wantAttempts: []string{"cl", "gcc"},
			wantUsed:     "mingw",
		},
		{
			name:         "both attempts fail",
			cfg:          msvc,
			failWith:     map[string]error{"cl": buildErr, "gcc": buildErr},
			wantAttempts: []string{"cl", "gcc"},
			wantUsed:     "mingw",
			wantErr:      true,
		},
		{
			name:         "mingw does not retry itself",
			cfg:          mingw,
			failWith:     map[string]error{"gcc": buildErr},
			wantAttempts: []string{"gcc"},
			wantUsed:     "mingw",
			wantErr:      true,
		},
		{
			name:         "non-windows has no fallback",
			cfg:          gcc,
			failWith:     map[string]error{"gcc": buildErr},
			wantAttempts: []string{"gcc"},
			wantUsed:     "gcc",
			wantErr:      true,
		},
		{
			name:         "fallback disabled",
			cfg:          msvc,
			disable:      true,
			failWith:     map[string]error{"cl": buildErr},
			wantAttempts: []string{"cl"},
			wantUsed:     "msvc",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&command.MockRunner{}, WithFallback(!tt.disable))
			var attempts []string

			used, err := r.Build(context.Background(), tt.cfg, func(ctx context.Context, c Config) error {
				attempts = append(attempts, c.Env["CC"])
				return tt.failWith[c.Env["CC"]]
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantUsed, used.Candidate.Name)
			if tt.wantErr {
				assert.ErrorIs(t, err, buildErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVSLocator_Environment(t *testing.T) {
	install := filepath.Join("C:", "VS", "2022", "Community")
	vswhere := filepath.Join("PF86", "Microsoft Visual Studio", "Installer", "vswhere.exe")
	script := filepath.Join(install, "VC", "Auxiliary", "Build", "vcvarsall.bat")

	mock := &command.MockRunner{
		Outputs: map[string]string{
			vswhere: install + "\r\n",
			"cmd /c": "Path=C:\\vc\\bin\r\nINCLUDE=C:\\inc\r\nWindowsSdkVersion=10.0.22621.0\\\r\nUNRELATED=1\r\n",
		},
	}
	existing := map[string]bool{vswhere: true, install: true, script: true}
	l := &VSLocator{
		runner: mock,
		getenv: func(k string) string {
			if k == "ProgramFiles(x86)" {
				return "PF86"
			}
			return ""
		},
		exists: func(p string) bool { return existing[p] },
	}

	got, env, err := l.Environment(context.Background(), platform.NewTarget("windows", "arm64"))

	require.NoError(t, err)
	assert.Equal(t, install, got)
	assert.Equal(t, "C:\\vc\\bin", env["PATH"])
	assert.Equal(t, "C:\\inc", env["INCLUDE"])
	assert.Equal(t, "10.0.22621.0\\", env["WindowsSdkVersion"])
	assert.NotContains(t, env, "UNRELATED")
	require.Len(t, mock.Commands, 2)
	assert.Contains(t, mock.Commands[1].Args, "arm64")
}

func TestVSLocator_KnownPathFallback(t *testing.T) {
	install := filepath.Join("PF", "Microsoft Visual Studio", "2022", "BuildTools")
	script := filepath.Join(install, "VC", "Auxiliary", "Build", "vcvarsall.bat")
	mock := &command.MockRunner{Outputs: map[string]string{"cmd /c": "LIB=C:\\lib\r\n"}}
	l := &VSLocator{
		runner: mock,
		getenv: func(k string) string {
			if k == "ProgramFiles" {
				return "PF"
			}
			return ""
		},
		exists: func(p string) bool { return p == install || p == script },
	}

	got, env, err := l.Environment(context.Background(), windows)

	require.NoError(t, err)
	assert.Equal(t, install, got)
	assert.Equal(t, "C:\\lib", env["LIB"])
}

func TestVSLocator_NotFound(t *testing.T) {
	l := &VSLocator{
		runner: &command.MockRunner{},
		getenv: func(string) string { return "" },
		exists: func(string) bool { return false },
	}

	_, _, err := l.Environment(context.Background(), windows)

	assert.ErrorIs(t, err, ErrVSNotFound)
}
