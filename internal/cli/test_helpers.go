package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"protonbuild/internal/command"
	"protonbuild/internal/config"
	"protonbuild/internal/output"
	"protonbuild/internal/paths"
	"protonbuild/internal/platform"
	"protonbuild/internal/status"
)

// testApp bundles an [App] wired with mocks and the buffers it writes to.
type testApp struct {
	app    *App
	runner *command.MockRunner
	out    *bytes.Buffer
	layout paths.Layout
}

// newTestApp creates an App for a linux/amd64 host whose working directory
// is the proton-sdk-rs crate inside a temporary workspace, so base-dir
// discovery resolves to the workspace root.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv(status.ReportPathEnv, "")

	base := t.TempDir()
	layout, err := paths.NewLayout(base)
	if err != nil {
		t.Fatalf("failed to create layout: %v", err)
	}
	if err := os.MkdirAll(layout.Rust(), 0755); err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	buf := &bytes.Buffer{}
	runner := &command.MockRunner{}
	app := &App{
		Config:  config.DefaultConfig(),
		Runner:  runner,
		Printer: output.NewPrinterWithWriter(buf),
		Target:  platform.NewTarget("linux", "amd64"),
		WorkDir: layout.Rust(),
	}
	return &testApp{app: app, runner: runner, out: buf, layout: layout}
}

// execute runs the root command with args and returns its error.
func (ta *testApp) execute(args ...string) error {
	rootCmd := NewRootCommand(ta.app)
	errBuf := &bytes.Buffer{}
	rootCmd.SetOut(ta.out)
	rootCmd.SetErr(errBuf)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// writeFile creates a file with content, creating parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}
