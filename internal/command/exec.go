package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after a timed-out
// child is killed. Grandchildren can hold the pipes open indefinitely.
const waitDelay = 2 * time.Second

// ExecRunner implements [Runner] using os/exec.
//
// Non-quiet invocations stream the child's stdout and stderr to the
// configured writer as they are produced, matching how a developer would see
// the tool's output in a terminal. Stderr is additionally captured so it can
// be attached to an [ExitError].
type ExecRunner struct {
	out io.Writer
}

// NewExecRunner creates an [ExecRunner] streaming output to out.
// A nil writer discards output.
func NewExecRunner(out io.Writer) *ExecRunner {
	if out == nil {
		out = io.Discard
	}
	return &ExecRunner{out: out}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	path, err := exec.LookPath(c.Name)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	if c.Timeout > 0 {
		cmd.WaitDelay = waitDelay
	}
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env, runtime.GOOS == "windows")
	}

	var stdout, stderr bytes.Buffer
	if c.Quiet {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		out := &lockedWriter{w: r.out}
		cmd.Stdout = out
		cmd.Stderr = io.MultiWriter(out, &stderr)
	}

	slog.Debug("exec", "command", c.String(), "dir", c.Dir, "timeout", c.Timeout)

	start := time.Now()
	runErr := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		return result, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%s after %s: %w", c.String(), c.Timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Command: c.String(), Code: result.ExitCode, Stderr: result.Stderr}
	}

	result.ExitCode = -1
	return result, fmt.Errorf("failed to run %s: %w", c.String(), runErr)
}

// lockedWriter serializes writes from the stdout and stderr copy goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
