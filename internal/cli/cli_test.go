package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonbuild/internal/command"
	"protonbuild/internal/config"
	"protonbuild/internal/pipeline"
	"protonbuild/internal/router"
	"protonbuild/internal/status"
)

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, exitCodeFor(err))
}

func TestPlanCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		contains []string
		absent   []string
	}{
		{
			name:     "default sequence",
			args:     []string{"plan"},
			contains: []string{"[1/4] clone", "[2/4] crypto", "[3/4] protos", "[4/4] sdk"},
			absent:   []string{"rust"},
		},
		{
			name:     "dll alias selects sdk",
			args:     []string{"plan", "--step", "dll"},
			contains: []string{"[1/1] sdk"},
		},
		{
			name:     "single rust step",
			args:     []string{"plan", "--step", "rust"},
			contains: []string{"[1/1] rust"},
		},
		{
			name:     "exclusions",
			args:     []string{"plan", "--exclude", "clone", "--exclude", "protos"},
			contains: []string{"[1/2] crypto", "[2/2] sdk", "excluded: clone", "excluded: protos"},
		},
		{
			name:     "excluding the only step",
			args:     []string{"plan", "--step", "sdk", "--exclude", "dll"},
			contains: []string{"Nothing to run"},
		},
		{
			name:     "arch override",
			args:     []string{"plan", "--arch", "aarch64"},
			contains: []string{"linux-arm64"},
		},
		{
			name:     "unknown step",
			args:     []string{"plan", "--step", "docs"},
			wantCode: 2,
			contains: []string{"unknown step"},
		},
		{
			name:     "all is not an exclusion",
			args:     []string{"plan", "--exclude", "all"},
			wantCode: 2,
		},
		{
			name:     "unsupported arch",
			args:     []string{"plan", "--arch", "sparc"},
			wantCode: 2,
			contains: []string{"unsupported architecture"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)

			err := ta.execute(tt.args...)

			if tt.wantCode != 0 {
				requireExitCode(t, err, tt.wantCode)
			} else {
				require.NoError(t, err)
			}
			out := ta.out.String()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
			assert.Empty(t, ta.runner.Commands, "plan never runs anything")
		})
	}
}

func TestRootCommand_RunsSelectedStep(t *testing.T) {
	ta := newTestApp(t)
	writeFile(t, filepath.Join(ta.layout.SDKProtos(), "drive.proto"), "syntax")
	require.NoError(t, os.MkdirAll(ta.layout.Sys(), 0755))

	err := ta.execute("--step", "protos")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(ta.layout.SysProtos(), "drive.proto"))

	// Only preflight probes ran.
	assert.Len(t, ta.runner.Commands, 6)
	for _, c := range ta.runner.Commands {
		assert.True(t, c.Quiet)
	}

	out := ta.out.String()
	assert.Contains(t, out, "[1/1] protos")
	assert.Contains(t, out, "Build completed successfully")

	report, err := status.NewReader(ta.layout.LastRun()).Read()
	require.NoError(t, err)
	assert.Equal(t, status.ResultSucceeded, report.Result)
	assert.Equal(t, "protos", report.Selector)
	assert.Equal(t, "linux-x64", report.RuntimeID)
	assert.Equal(t, ta.layout.Base, report.BaseDir)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "succeeded", report.Steps[0].Outcome)
}

func TestRootCommand_MissingTool(t *testing.T) {
	ta := newTestApp(t)
	ta.runner.Failures = map[string]error{"cargo --version": command.ErrNotFound}

	err := ta.execute("--step", "clone")

	requireExitCode(t, err, 1)
	assert.False(t, ta.runner.Ran("git clone"), "no step runs when a tool is missing")
	assert.Contains(t, ta.out.String(), "Missing required tools: cargo")
	assert.Contains(t, ta.out.String(), "https://rustup.rs/")

	report, err := status.NewReader(ta.layout.LastRun()).Read()
	require.NoError(t, err)
	assert.Equal(t, status.ResultFailed, report.Result)
	assert.Equal(t, []string{"cargo"}, report.MissingTools)
	assert.Empty(t, report.Steps)
}

func TestRootCommand_FatalStepFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.runner.Failures = map[string]error{"git clone": &command.ExitError{Command: "git clone", Code: 128}}

	err := ta.execute()

	requireExitCode(t, err, 1)
	assert.False(t, ta.runner.Ran("dotnet nuget"), "steps after a fatal failure never run")

	report, err := status.NewReader(ta.layout.LastRun()).Read()
	require.NoError(t, err)
	assert.Equal(t, status.ResultFailed, report.Result)
	require.Len(t, report.Steps, 4)
	assert.Equal(t, "failed", report.Steps[0].Outcome)
	for _, s := range report.Steps[1:] {
		assert.Equal(t, "not-run", s.Outcome)
	}
}

func TestRootCommand_BestEffortFailure(t *testing.T) {
	ta := newTestApp(t)

	// protos fails (no proton-sdk-sys) but the run still succeeds.
	err := ta.execute("--step", "protos")

	require.NoError(t, err)
	report, err := status.NewReader(ta.layout.LastRun()).Read()
	require.NoError(t, err)
	assert.Equal(t, status.ResultSucceeded, report.Result)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "warned", report.Steps[0].Outcome)
	assert.NotEmpty(t, report.Steps[0].Error)
}

func TestRootCommand_SkipClone(t *testing.T) {
	ta := newTestApp(t)

	err := ta.execute("--step", "clone", "--skip-clone")

	require.NoError(t, err)
	assert.False(t, ta.runner.Ran("git clone"))
	assert.Contains(t, ta.out.String(), "--skip-clone is deprecated")

	report, err := status.NewReader(ta.layout.LastRun()).Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"clone"}, report.Excluded)
	require.Len(t, report.Steps, 1)
	assert.Equal(t, "excluded", report.Steps[0].Outcome)
}

func TestRootCommand_BaseDirFlag(t *testing.T) {
	ta := newTestApp(t)
	other := t.TempDir()

	err := ta.execute("plan", "--base-dir", other)

	require.NoError(t, err)
	assert.Contains(t, ta.out.String(), other)
}

func TestRootCommand_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unexpected argument", []string{"build"}},
		{"unknown flag", []string{"--frobnicate"}},
		{"unknown step", []string{"--step", "docs"}},
		{"plan takes no arguments", []string{"plan", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			err := ta.execute(tt.args...)
			requireExitCode(t, err, 2)
			assert.Empty(t, ta.runner.Commands)
		})
	}
}

func TestCleanCommand(t *testing.T) {
	for _, args := range [][]string{{"clean"}, {"--clean"}} {
		t.Run(args[0], func(t *testing.T) {
			ta := newTestApp(t)
			staged := filepath.Join(ta.layout.NativeLibs(), "linux-x64", "lib.so")
			writeFile(t, staged, "so")

			err := ta.execute(args...)

			require.NoError(t, err)
			assert.NoFileExists(t, staged)
			assert.True(t, ta.runner.Ran("cargo clean"))
			assert.True(t, ta.runner.Ran("dotnet nuget locals all --clear"))
			assert.False(t, ta.runner.Ran("git"), "clean never builds")
		})
	}
}

func TestDetectCommand(t *testing.T) {
	ta := newTestApp(t)

	err := ta.execute("detect")

	require.NoError(t, err)
	out := ta.out.String()
	assert.Contains(t, out, "linux-x64")
	assert.Contains(t, out, "libproton_crypto.so")
	assert.Contains(t, out, "libproton_crypto.a")
	assert.Contains(t, out, "gcc")
	assert.Empty(t, ta.runner.Commands, "non-windows targets never probe")
}

func TestStatusCommand(t *testing.T) {
	ta := newTestApp(t)

	require.NoError(t, ta.execute("status"))
	assert.Contains(t, ta.out.String(), "No build has been recorded")

	require.NoError(t, ta.execute("--step", "sdk"))
	ta.out.Reset()

	require.NoError(t, ta.execute("status"))
	out := ta.out.String()
	assert.Contains(t, out, "Last build")
	assert.Contains(t, out, "linux-x64")
	assert.Contains(t, out, "sdk  warned")
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	ta := newTestApp(t)
	cfgPath := filepath.Join(t.TempDir(), "build.yaml")
	writeFile(t, cfgPath, "steps: [protos, rust]\n")

	err := ta.execute("plan", "--config", cfgPath)

	require.NoError(t, err)
	out := ta.out.String()
	assert.Contains(t, out, "[1/2] protos")
	assert.Contains(t, out, "[2/2] rust")
}

func TestRootCommand_ConfigFlagInvalid(t *testing.T) {
	ta := newTestApp(t)
	cfgPath := filepath.Join(t.TempDir(), "build.yaml")
	writeFile(t, cfgPath, "steps: [docs]\n")

	err := ta.execute("plan", "--config", cfgPath)

	requireExitCode(t, err, 1)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"exit error", NewExitError(3), 3},
		{"usage", usageErrorf("bad"), 2},
		{"unknown step", fmt.Errorf("select: %w", router.ErrUnknownStep), 2},
		{"step failure", &pipeline.StepError{StepID: "clone", Err: errors.New("boom")}, 1},
		{"missing tools", &pipeline.MissingToolsError{Tools: []string{"go"}}, 1},
		{"other", context.Canceled, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		cfg       config.LogConfig
		wantDebug bool
		wantWarn  bool
		wantJSON  bool
	}{
		{config.LogConfig{Level: "debug", Format: "text"}, true, true, false},
		{config.LogConfig{Level: "warn", Format: "json"}, false, true, true},
		{config.LogConfig{Level: "error", Format: "text"}, false, false, false},
		{config.LogConfig{Level: "", Format: ""}, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.cfg.Level+"/"+tt.cfg.Format, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := newLogger(tt.cfg, buf)
			ctx := context.Background()

			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantWarn, logger.Enabled(ctx, slog.LevelWarn))

			logger.Error("probe", "tool", "go")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"tool":"go"`)
			} else {
				assert.Contains(t, buf.String(), "tool=go")
			}
		})
	}
}
