package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"protonbuild/internal/command"
	"protonbuild/internal/platform"
)

// ErrUnresolved indicates no Windows compiler candidate probed successfully.
// The dependent build step should skip native compilation rather than abort.
var ErrUnresolved = errors.New("no usable native toolchain found")

// DefaultProbeTimeout bounds each candidate's version check.
const DefaultProbeTimeout = 10 * time.Second

// Locator finds a Visual Studio installation and returns its developer
// environment variables for the given target.
type Locator interface {
	Environment(ctx context.Context, target platform.Target) (install string, env map[string]string, err error)
}

// Resolver selects a native toolchain for a target.
//
// Create with [NewResolver]. The zero value is not usable.
type Resolver struct {
	runner       command.Runner
	probeTimeout time.Duration
	candidates   []Candidate
	locator      Locator
	fallback     bool
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithProbeTimeout sets the bound for each candidate probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithCandidates replaces the Windows candidate list. Candidates are sorted
// by rank before use.
func WithCandidates(c []Candidate) Option {
	return func(r *Resolver) {
		r.candidates = append([]Candidate(nil), c...)
	}
}

// WithLocator sets the Visual Studio locator used for MSVC-family winners.
// A nil locator disables environment sourcing.
func WithLocator(l Locator) Option {
	return func(r *Resolver) {
		r.locator = l
	}
}

// WithFallback enables or disables the build-time MinGW fallback.
func WithFallback(enabled bool) Option {
	return func(r *Resolver) {
		r.fallback = enabled
	}
}

// NewResolver creates a [Resolver] that probes candidates with runner.
//
// By default it uses [WindowsCandidates], [DefaultProbeTimeout], a
// [VSLocator] backed by the same runner, and the MinGW fallback enabled.
func NewResolver(runner command.Runner, opts ...Option) *Resolver {
	r := &Resolver{
		runner:       runner,
		probeTimeout: DefaultProbeTimeout,
		candidates:   WindowsCandidates(),
		locator:      NewVSLocator(runner),
		fallback:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	sort.SliceStable(r.candidates, func(i, j int) bool {
		return r.candidates[i].Rank < r.candidates[j].Rank
	})
	return r
}

// Resolve selects the toolchain for target.
//
// Non-Windows targets always get [DefaultCandidate] without probing. Windows
// targets probe candidates in rank order and stop at the first success; if
// none succeeds, Resolve returns [ErrUnresolved].
func (r *Resolver) Resolve(ctx context.Context, target platform.Target) (Config, error) {
	if !target.IsWindows() {
		c := DefaultCandidate()
		return Config{Target: target, Candidate: c, Env: command.Overlay(nil, c.Env)}, nil
	}

	for _, c := range r.candidates {
		if !r.available(ctx, c) {
			slog.Debug("toolchain candidate unavailable", "candidate", c.Name, "rank", c.Rank)
			continue
		}

		slog.Debug("toolchain candidate selected", "candidate", c.Name, "rank", c.Rank)
		cfg := Config{Target: target, Candidate: c, Env: command.Overlay(nil, c.Env)}
		if c.Family == FamilyMSVC {
			r.sourceVS(ctx, &cfg)
		}
		return cfg, nil
	}

	return Config{Target: target}, fmt.Errorf("%s: %w", target, ErrUnresolved)
}

func (r *Resolver) available(ctx context.Context, c Candidate) bool {
	if c.Probe.Name == "" {
		return true
	}
	return command.Probe(ctx, r.runner, c.Probe, r.probeTimeout)
}

// sourceVS merges the Visual Studio developer environment into cfg.
// Failure is non-fatal: the compiler is used with whatever environment the
// process already has.
func (r *Resolver) sourceVS(ctx context.Context, cfg *Config) {
	if r.locator == nil {
		return
	}
	install, env, err := r.locator.Environment(ctx, cfg.Target)
	if err != nil {
		slog.Warn("visual studio environment not sourced", "candidate", cfg.Candidate.Name, "error", err)
		return
	}
	cfg.Env = command.Overlay(cfg.Env, env)
	cfg.VSInstall = install
}

// Fallback returns the MinGW configuration to retry with after cfg failed
// during an actual build. The boolean is false when no fallback applies:
// non-Windows targets, fallback disabled, or cfg already being MinGW.
func (r *Resolver) Fallback(cfg Config) (Config, bool) {
	if !r.fallback || !cfg.Target.IsWindows() || cfg.Candidate.Family == FamilyMinGW {
		return Config{}, false
	}
	c := MinGWCandidate()
	return Config{Target: cfg.Target, Candidate: c, Env: command.Overlay(nil, c.Env)}, true
}

// Build runs fn with cfg. If fn fails and a fallback applies, it runs fn
// exactly once more with the MinGW configuration. The returned Config is the
// one used by the last attempt.
func (r *Resolver) Build(ctx context.Context, cfg Config, fn func(context.Context, Config) error) (Config, error) {
	err := fn(ctx, cfg)
	if err == nil {
		return cfg, nil
	}

	fb, ok := r.Fallback(cfg)
	if !ok {
		return cfg, err
	}

	slog.Warn("build failed, retrying with mingw", "candidate", cfg.Candidate.Name, "error", err)
	if fbErr := fn(ctx, fb); fbErr != nil {
		return fb, fmt.Errorf("%w; mingw fallback also failed: %w", err, fbErr)
	}
	return fb, nil
}
