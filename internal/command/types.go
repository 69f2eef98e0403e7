// Package command runs external build tools as child processes.
//
// Every invocation is described by a [Command] value carrying its own working
// directory and environment overlay, so callers never mutate process-wide
// state such as the current directory. Probe invocations (version checks) are
// bounded by [Command.Timeout]; build invocations leave it zero and block
// until the child exits.
//
// Key types:
//   - [Runner] is the interface for executing a [Command]
//   - [ExecRunner] is the os/exec implementation streaming output to a writer
//   - [MockRunner] records invocations and returns scripted results for tests
//
// Failures are classified with sentinel errors: [ErrNotFound] for a missing
// executable, [ErrTimeout] for an expired probe, and [*ExitError] for a
// non-zero exit status.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for process invocation.
var (
	// ErrNotFound indicates the executable could not be located on PATH.
	ErrNotFound = errors.New("executable not found")

	// ErrTimeout indicates the invocation exceeded its [Command.Timeout].
	ErrTimeout = errors.New("command timed out")
)

// Command describes a single external-process invocation.
type Command struct {
	// Name is the executable to run, resolved via PATH when not absolute.
	Name string

	// Args are the arguments passed to the executable.
	Args []string

	// Dir is the working directory for the child. Empty means the
	// orchestrator's own working directory.
	Dir string

	// Env is overlaid on the parent environment. Keys present here replace
	// inherited values.
	Env map[string]string

	// Timeout bounds the invocation. Zero means no bound.
	Timeout time.Duration

	// Quiet captures output instead of streaming it to the runner's writer.
	Quiet bool
}

// String renders the command line for logs and console output.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the outcome of a completed invocation.
type Result struct {
	// ExitCode is the child's exit status. Zero on success.
	ExitCode int

	// Stdout and Stderr hold captured output for quiet invocations.
	Stdout string
	Stderr string

	// Duration is the wall time of the invocation.
	Duration time.Duration
}

// ExitError reports a child that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// Runner executes external commands.
//
// Run returns a nil error only when the child exited with status zero. A
// non-zero exit yields an [*ExitError]; a missing executable yields an error
// wrapping [ErrNotFound]; an expired timeout yields an error wrapping
// [ErrTimeout].
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Probe runs cmd quietly with the given timeout and reports whether it
// succeeded. Any failure (missing executable, timeout, non-zero exit) counts
// as unavailable.
func Probe(ctx context.Context, r Runner, cmd Command, timeout time.Duration) bool {
	cmd.Timeout = timeout
	cmd.Quiet = true
	_, err := r.Run(ctx, cmd)
	return err == nil
}
