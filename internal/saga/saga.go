// Package saga runs multi-step operations whose steps cannot share a transaction,
// undoing completed steps in reverse order when a later step fails.
package saga

import (
	"context"
	"fmt"
	"log/slog"
)

// Step is one unit of work. Compensate may be nil for steps with nothing to undo.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports which step failed. It unwraps to the step's error.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Run executes steps in order. When a step fails, the compensations of the steps that
// already succeeded run newest first; their failures are logged and do not stop the
// rollback. The returned error is a *StepError wrapping the original failure.
func Run(ctx context.Context, name string, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := step.Do(ctx); err != nil {
			compensate(ctx, name, done)
			return &StepError{Step: step.Name, Err: err}
		}
		done = append(done, step)
	}
	return nil
}

func compensate(ctx context.Context, name string, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			slog.Error("saga compensation failed",
				"saga", name, "step", step.Name, "error", err)
		}
	}
}
