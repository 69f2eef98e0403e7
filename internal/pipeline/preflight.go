package pipeline

import (
	"context"
	"log/slog"
	"time"

	"protonbuild/internal/command"
)

// Tool is an external executable checked before any step runs.
type Tool struct {
	// Name is the executable name.
	Name string

	// Probe is the version-check invocation.
	Probe command.Command

	// Required tools abort the run when missing. Optional tools only warn.
	Required bool

	// Hint tells the user how to install the tool.
	Hint string
}

// NewTool returns a required [Tool] probed with "go version" for go and
// "<name> --version" for everything else.
func NewTool(name, hint string) Tool {
	probe := command.Command{Name: name, Args: []string{"--version"}}
	if name == "go" {
		probe.Args = []string{"version"}
	}
	return Tool{Name: name, Probe: probe, Required: true, Hint: hint}
}

// DefaultTools returns the tools every build needs.
func DefaultTools() []Tool {
	return []Tool{
		NewTool("git", "Git: https://git-scm.com/downloads"),
		NewTool("dotnet", ".NET SDK: https://dotnet.microsoft.com/download"),
		NewTool("cargo", "Rust: https://rustup.rs/"),
		NewTool("rustc", "Rust: https://rustup.rs/"),
		NewTool("go", "Go: https://golang.org/dl/"),
		NewTool("gcc", "GCC or MinGW-w64: https://www.mingw-w64.org/downloads/"),
	}
}

// ToolCheck is the preflight outcome for one tool.
type ToolCheck struct {
	Tool      Tool
	Available bool
}

// ToolCallback is invoked after each tool is probed.
type ToolCallback func(check ToolCheck)

// Preflight probes every tool with the given timeout.
//
// It returns all checks in declared order. If any required tool is
// unavailable, the error is a [*MissingToolsError].
func Preflight(ctx context.Context, runner command.Runner, tools []Tool, timeout time.Duration, cb ToolCallback) ([]ToolCheck, error) {
	checks := make([]ToolCheck, 0, len(tools))
	missing := &MissingToolsError{Hints: make(map[string]string)}

	for _, t := range tools {
		ok := command.Probe(ctx, runner, t.Probe, timeout)
		check := ToolCheck{Tool: t, Available: ok}
		checks = append(checks, check)
		if cb != nil {
			cb(check)
		}

		if ok {
			continue
		}
		if !t.Required {
			slog.Warn("optional tool not found", "tool", t.Name)
			continue
		}
		missing.Tools = append(missing.Tools, t.Name)
		if t.Hint != "" {
			missing.Hints[t.Name] = t.Hint
		}
	}

	if len(missing.Tools) > 0 {
		return checks, missing
	}
	return checks, nil
}
