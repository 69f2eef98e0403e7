package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protonbuild/internal/command"
)

// recorder builds steps whose actions append their id to calls.
type recorder struct {
	calls []string
}

func (r *recorder) step(id string, fatal bool, err error) Step {
	return Step{
		ID:          id,
		Description: "step " + id,
		Fatal:       fatal,
		Action: func(ctx context.Context) error {
			r.calls = append(r.calls, id)
			return err
		},
	}
}

func outcomes(r Report) map[string]Outcome {
	m := make(map[string]Outcome, len(r.Steps))
	for _, s := range r.Steps {
		m[s.ID] = s.Outcome
	}
	return m
}

func TestExecutor_Run_DeclaredOrder(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("clone", true, nil),
		rec.step("crypto", true, nil),
		rec.step("protos", false, nil),
		rec.step("sdk", false, nil),
	}
	exec := NewExecutor(&command.MockRunner{}, nil)

	report, err := exec.Run(context.Background(), steps, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"clone", "crypto", "protos", "sdk"}, rec.calls)
	assert.Equal(t, 4, report.Count(OutcomeSucceeded))
}

func TestExecutor_Run_Exclusion(t *testing.T) {
	tests := []struct {
		name     string
		excluded []string
		want     []string
	}{
		{name: "nothing excluded", excluded: nil, want: []string{"clone", "crypto", "protos", "sdk"}},
		{name: "exclude clone", excluded: []string{"clone"}, want: []string{"crypto", "protos", "sdk"}},
		{name: "exclude middle two", excluded: []string{"crypto", "protos"}, want: []string{"clone", "sdk"}},
		{name: "exclude all", excluded: []string{"clone", "crypto", "protos", "sdk"}, want: nil},
		{name: "unknown exclusion ignored", excluded: []string{"rust"}, want: []string{"clone", "crypto", "protos", "sdk"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			steps := []Step{
				rec.step("clone", true, nil),
				rec.step("crypto", true, nil),
				rec.step("protos", false, nil),
				rec.step("sdk", false, nil),
			}
			exec := NewExecutor(&command.MockRunner{}, nil)

			report, err := exec.Run(context.Background(), steps, tt.excluded)

			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.calls)
			for _, id := range tt.excluded {
				if id == "rust" {
					continue
				}
				assert.Equal(t, OutcomeExcluded, outcomes(report)[id])
			}
			assert.Len(t, report.Steps, 4)
		})
	}
}

func TestExecutor_Run_ExcludedActionNeverInvoked(t *testing.T) {
	invoked := 0
	steps := []Step{{
		ID:     "clone",
		Fatal:  true,
		Action: func(ctx context.Context) error { invoked++; return nil },
	}}
	exec := NewExecutor(&command.MockRunner{}, nil)

	_, err := exec.Run(context.Background(), steps, []string{"clone"})

	require.NoError(t, err)
	assert.Zero(t, invoked)
}

func TestExecutor_Run_FatalFailureStops(t *testing.T) {
	rec := &recorder{}
	cloneErr := errors.New("git clone failed")
	steps := []Step{
		rec.step("clone", true, cloneErr),
		rec.step("crypto", true, nil),
		rec.step("protos", false, nil),
	}
	exec := NewExecutor(&command.MockRunner{}, nil)

	report, err := exec.Run(context.Background(), steps, []string{"protos"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.ErrorIs(t, err, cloneErr)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "clone", stepErr.StepID)

	assert.Equal(t, []string{"clone"}, rec.calls)
	assert.Equal(t, map[string]Outcome{
		"clone":  OutcomeFailed,
		"crypto": OutcomeNotRun,
		"protos": OutcomeExcluded,
	}, outcomes(report))
}

func TestExecutor_Run_BestEffortFailureContinues(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("protos", false, errors.New("source missing")),
		rec.step("sdk", false, nil),
	}
	exec := NewExecutor(&command.MockRunner{}, nil)

	report, err := exec.Run(context.Background(), steps, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"protos", "sdk"}, rec.calls)
	assert.Equal(t, OutcomeWarned, outcomes(report)["protos"])
	assert.Equal(t, OutcomeSucceeded, outcomes(report)["sdk"])
	assert.EqualError(t, report.Steps[0].Err, "source missing")
}

func TestExecutor_Run_DuplicateIDs(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("clone", true, nil),
		rec.step("clone", true, nil),
	}
	mock := &command.MockRunner{}
	exec := NewExecutor(mock, DefaultTools())

	_, err := exec.Run(context.Background(), steps, nil)

	assert.ErrorIs(t, err, ErrDuplicateStep)
	assert.Empty(t, rec.calls)
	assert.Empty(t, mock.Commands, "preflight must not run for an invalid step list")
}

func TestExecutor_Run_MissingToolRunsNothing(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("clone", true, nil),
		rec.step("crypto", true, nil),
	}
	mock := &command.MockRunner{
		Failures: map[string]error{
			"cargo": command.ErrNotFound,
			"go":    &command.ExitError{Command: "go version", Code: 2},
		},
	}
	exec := NewExecutor(mock, DefaultTools())

	report, err := exec.Run(context.Background(), steps, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTools)
	var missing *MissingToolsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"cargo", "go"}, missing.Tools)
	assert.Contains(t, missing.Hints["cargo"], "rustup")
	assert.Empty(t, rec.calls)
	assert.Empty(t, report.Steps)
	assert.Len(t, report.Tools, 6)
}

func TestExecutor_Run_PreflightProbes(t *testing.T) {
	mock := &command.MockRunner{}
	exec := NewExecutor(mock, DefaultTools())
	exec.SetProbeTimeout(2 * time.Second)
	var seen []string
	exec.SetToolCallback(func(c ToolCheck) { seen = append(seen, c.Tool.Name) })

	_, err := exec.Run(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"git --version",
		"dotnet --version",
		"cargo --version",
		"rustc --version",
		"go version",
		"gcc --version",
	}, mock.Lines())
	assert.Equal(t, []string{"git", "dotnet", "cargo", "rustc", "go", "gcc"}, seen)
	for _, c := range mock.Commands {
		assert.Equal(t, 2*time.Second, c.Timeout)
		assert.True(t, c.Quiet)
	}
}

func TestExecutor_Run_OptionalToolOnlyWarns(t *testing.T) {
	tool := NewTool("dos2unix", "")
	tool.Required = false
	mock := &command.MockRunner{Failures: map[string]error{"dos2unix": command.ErrNotFound}}
	rec := &recorder{}
	exec := NewExecutor(mock, []Tool{tool})

	_, err := exec.Run(context.Background(), []Step{rec.step("clone", true, nil)}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"clone"}, rec.calls)
}

func TestExecutor_Run_ProgressCallback(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("clone", true, nil),
		rec.step("crypto", true, nil),
		rec.step("protos", false, nil),
	}
	exec := NewExecutor(&command.MockRunner{}, nil)

	type call struct {
		index, total int
		id           string
	}
	var calls []call
	exec.SetProgressCallback(func(i, total int, s Step) {
		calls = append(calls, call{i, total, s.ID})
	})

	_, err := exec.Run(context.Background(), steps, []string{"crypto"})

	require.NoError(t, err)
	assert.Equal(t, []call{{1, 2, "clone"}, {2, 2, "protos"}}, calls)
}

func TestExecutor_Run_CancelledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	steps := []Step{
		{ID: "clone", Fatal: true, Action: func(ctx context.Context) error { cancel(); return nil }},
		rec.step("crypto", true, nil),
	}
	exec := NewExecutor(&command.MockRunner{}, nil)

	report, err := exec.Run(ctx, steps, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
	assert.Equal(t, OutcomeNotRun, outcomes(report)["crypto"])
}

func TestPlan(t *testing.T) {
	rec := &recorder{}
	steps := []Step{
		rec.step("clone", true, nil),
		rec.step("crypto", true, nil),
		rec.step("sdk", false, nil),
	}

	got, err := Plan(steps, []string{"crypto"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "clone", got[0].ID)
	assert.Equal(t, "sdk", got[1].ID)
	assert.Empty(t, rec.calls)

	_, err = Plan(append(steps, rec.step("sdk", false, nil)), nil)
	assert.ErrorIs(t, err, ErrDuplicateStep)
}

func TestMissingToolsError(t *testing.T) {
	err := &MissingToolsError{Tools: []string{"git", "go"}}

	assert.EqualError(t, err, "missing required tools: git, go")
	assert.True(t, errors.Is(err, ErrMissingTools))
	assert.False(t, errors.Is(err, ErrStepFailed))
}
