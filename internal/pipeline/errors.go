package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for step execution.
var (
	// ErrDuplicateStep indicates two steps in one run share an id. The run is
	// rejected before any action executes.
	ErrDuplicateStep = errors.New("duplicate step id")

	// ErrMissingTools indicates one or more required tools failed the
	// preflight check. No step action runs when this is returned.
	ErrMissingTools = errors.New("missing required tools")

	// ErrStepFailed indicates a fatal step returned an error and the run was
	// aborted.
	ErrStepFailed = errors.New("step failed")
)

// MissingToolsError lists the required tools that failed preflight along
// with install hints for each.
//
// It matches [ErrMissingTools] with errors.Is.
type MissingToolsError struct {
	// Tools holds the missing tool names in declared order.
	Tools []string

	// Hints maps a tool name to an install hint. Tools without a hint are
	// absent from the map.
	Hints map[string]string
}

// Error implements the error interface.
func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingTools, strings.Join(e.Tools, ", "))
}

// Is reports whether target is [ErrMissingTools].
func (e *MissingToolsError) Is(target error) bool {
	return target == ErrMissingTools
}

// StepError wraps the error returned by a fatal step's action.
//
// It matches [ErrStepFailed] with errors.Is and unwraps to the action error.
type StepError struct {
	StepID string
	Err    error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrStepFailed, e.StepID, e.Err)
}

// Is reports whether target is [ErrStepFailed].
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

// Unwrap returns the action error.
func (e *StepError) Unwrap() error {
	return e.Err
}
