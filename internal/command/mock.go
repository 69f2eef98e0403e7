package command

import (
	"context"
	"strings"
)

// MockRunner implements [Runner] for testing without spawning processes.
//
// Configure responses by command line prefix:
//
//	mock := &MockRunner{
//	    Failures: map[string]error{"cl": ErrNotFound},
//	    Outputs:  map[string]string{"cmd /c": "INCLUDE=C:\\inc"},
//	}
//
// A prefix matches whole words only ("cl" matches "cl /?" but not
// "clang-cl"). The longest matching prefix wins. Commands with no matching
// failure succeed with exit code 0.
type MockRunner struct {
	// Failures maps a command-line prefix to the error returned for it.
	Failures map[string]error

	// Outputs maps a command-line prefix to the stdout returned for it.
	Outputs map[string]string

	// Hook, when set, is invoked for every command before the maps are
	// consulted. A non-nil error from Hook is returned as-is.
	Hook func(cmd Command) error

	// Commands records every invocation in order.
	Commands []Command
}

// Run records cmd and returns the scripted outcome.
func (m *MockRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	m.Commands = append(m.Commands, cmd)

	if m.Hook != nil {
		if err := m.Hook(cmd); err != nil {
			return Result{ExitCode: exitCodeFor(err)}, err
		}
	}

	line := cmd.String()
	if err := lookupPrefix(m.Failures, line); err != nil {
		return Result{ExitCode: exitCodeFor(err)}, err
	}

	var stdout string
	if out, ok := longestPrefix(m.Outputs, line); ok {
		stdout = out
	}
	return Result{Stdout: stdout}, nil
}

// Lines returns the recorded command lines.
func (m *MockRunner) Lines() []string {
	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (m *MockRunner) Ran(prefix string) bool {
	for _, c := range m.Commands {
		if hasWordPrefix(c.String(), prefix) {
			return true
		}
	}
	return false
}

func lookupPrefix(m map[string]error, line string) error {
	best := -1
	var found error
	for prefix, err := range m {
		if hasWordPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			found = err
		}
	}
	return found
}

func longestPrefix(m map[string]string, line string) (string, bool) {
	best := -1
	var found string
	for prefix, v := range m {
		if hasWordPrefix(line, prefix) && len(prefix) > best {
			best = len(prefix)
			found = v
		}
	}
	return found, best >= 0
}

func hasWordPrefix(line, prefix string) bool {
	return line == prefix || strings.HasPrefix(line, prefix+" ")
}

func exitCodeFor(err error) int {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code
	}
	return -1
}
