// Package router maps a step selector to the ordered step ids to run.
//
// A selector is either "all", which expands to the configured default
// sequence, or a single step id. Aliases are resolved to their canonical id
// ("dll" is an alias of "sdk"). Exclusions given on the command line are
// validated against the same set of known ids.
//
// Key types:
//   - [Router] - Configurable step selector
//
// Package-level functions [Select] and [Canonical] use the default router.
package router

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for step selection.
var (
	// ErrUnknownStep indicates a selector, exclusion or configured sequence
	// entry names no known step. Callers should report it as a usage error.
	ErrUnknownStep = errors.New("unknown step")
)

// Step ids known to the build.
const (
	StepClone  = "clone"
	StepCrypto = "crypto"
	StepProtos = "protos"
	StepSDK    = "sdk"
	StepRust   = "rust"
)

// SelectorAll expands to the configured default sequence.
const SelectorAll = "all"

// knownSteps is the canonical declaration order of every step.
var knownSteps = []string{StepClone, StepCrypto, StepProtos, StepSDK, StepRust}

// defaultSequence is what "all" runs when no sequence is configured.
var defaultSequence = []string{StepClone, StepCrypto, StepProtos, StepSDK}

var aliases = map[string]string{
	"dll": StepSDK,
}

// Router resolves selectors to ordered step ids.
//
// Create with [NewRouter] for the default sequence or [NewRouterWithSequence]
// for a configured one.
type Router struct {
	// sequence is the ordered id list that "all" expands to.
	sequence []string
}

// NewRouter creates a [Router] whose "all" sequence is
// clone → crypto → protos → sdk.
func NewRouter() *Router {
	return &Router{sequence: slices.Clone(defaultSequence)}
}

// NewRouterWithSequence creates a [Router] whose "all" sequence is seq.
//
// Every entry is canonicalized. An unknown entry returns [ErrUnknownStep].
// An empty seq falls back to the default sequence.
func NewRouterWithSequence(seq []string) (*Router, error) {
	if len(seq) == 0 {
		return NewRouter(), nil
	}
	r := &Router{sequence: make([]string, 0, len(seq))}
	for _, id := range seq {
		c, err := Canonical(id)
		if err != nil {
			return nil, fmt.Errorf("configured step sequence: %w", err)
		}
		r.sequence = append(r.sequence, c)
	}
	return r, nil
}

// Sequence returns a copy of the "all" sequence.
func (r *Router) Sequence() []string {
	return slices.Clone(r.sequence)
}

// Select returns the ordered step ids for selector.
//
// "all" (or an empty selector) returns the configured sequence. A single
// step id or alias returns that one canonical id. Anything else returns
// [ErrUnknownStep].
func (r *Router) Select(selector string) ([]string, error) {
	if selector == "" || selector == SelectorAll {
		return r.Sequence(), nil
	}
	id, err := Canonical(selector)
	if err != nil {
		return nil, err
	}
	return []string{id}, nil
}

// Exclusions canonicalizes a list of excluded step ids, dropping duplicates.
// "all" is not a valid exclusion.
func (r *Router) Exclusions(ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		c, err := Canonical(id)
		if err != nil {
			return nil, fmt.Errorf("exclusion: %w", err)
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Canonical returns the canonical step id for id, resolving aliases.
//
// Returns [ErrUnknownStep] for anything that is not a known step or alias.
func Canonical(id string) (string, error) {
	if target, ok := aliases[id]; ok {
		return target, nil
	}
	if slices.Contains(knownSteps, id) {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, id)
}

// Known returns every known step id in canonical declaration order.
func Known() []string {
	return slices.Clone(knownSteps)
}

// Selectors returns every value accepted by [Router.Select], for help text.
func Selectors() []string {
	out := append([]string{SelectorAll}, knownSteps...)
	for alias := range aliases {
		out = append(out, alias)
	}
	slices.Sort(out[1+len(knownSteps):])
	return out
}

// defaultRouter is the package-level router used by [Select].
var defaultRouter = NewRouter()

// Select returns the ordered step ids for selector using the default sequence.
//
// See [Router.Select].
func Select(selector string) ([]string, error) {
	return defaultRouter.Select(selector)
}
