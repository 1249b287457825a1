package saga

import (
	"context"
	"fmt"
	"log/slog"
)

// Error is the terminal failure of a workflow. It carries the name of the
// failing step and the workflow's final state so callers can distinguish a
// clean rollback from a partial failure that needs operator follow-up.
type Error struct {
	Workflow string
	Step     string
	State    State
	Err      error

	// Uncompensated lists local steps whose inverse operation failed.
	// Non-empty only when State is StatePartiallyFailed.
	Uncompensated []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s at step %q: %v", e.Workflow, e.State, e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the terminal report of one workflow run.
type Result struct {
	State    State
	Attempts map[string]int // step name -> attempts made
	Err      *Error         // nil when State is StateCommitted
}

// Orchestrator drives workflows: it executes steps in order, decides when to
// continue or abort, and runs compensation when a step fails fatally.
type Orchestrator struct {
	exec *Executor
}

// NewOrchestrator creates an Orchestrator using the given executor for
// remote steps.
func NewOrchestrator(exec *Executor) *Orchestrator {
	return &Orchestrator{exec: exec}
}

// Run executes the steps sequentially. Local steps run exactly once; remote
// steps go through the executor's retry policy. On fatal failure the
// committed local steps are compensated in reverse order, best-effort: a
// failed inverse operation is logged and skipped rather than retried, and
// the run ends PartiallyFailed instead of RolledBack.
//
// Compensation runs even when the inbound request was cancelled mid-saga;
// abandoning half-committed state would be worse than finishing late.
func (o *Orchestrator) Run(ctx context.Context, workflow string, steps []Step) Result {
	res := Result{State: StateRunning, Attempts: make(map[string]int, len(steps))}

	var committed []Step // local steps eligible for compensation, in commit order

	for i := range steps {
		step := steps[i]

		var attempts int
		var err error
		switch step.Kind {
		case KindLocal:
			attempts, err = 1, step.Run(ctx)
		default:
			r := o.exec.Execute(ctx, step)
			attempts, err = r.Attempts, r.Err
		}
		res.Attempts[step.Name] = attempts

		if err != nil {
			slog.Error("saga step failed, aborting",
				"workflow", workflow, "step", step.Name, "attempts", attempts, "error", err)
			return o.abort(ctx, workflow, step.Name, err, committed, res)
		}

		if step.Kind == KindLocal && step.Compensate != nil {
			committed = append(committed, step)
		}

		slog.Debug("saga step completed", "workflow", workflow, "step", step.Name)
	}

	res.State = StateCommitted
	return res
}

// abort compensates committed local writes in reverse order and produces the
// terminal result. Remote writes already applied are left in place; the
// idempotent resync path converges them later.
func (o *Orchestrator) abort(ctx context.Context, workflow, failedStep string, cause error, committed []Step, res Result) Result {
	res.State = StateAborting

	// The request context may already be cancelled; compensation must still
	// run to completion server-side.
	ctx = context.WithoutCancel(ctx)

	var uncompensated []string
	for i := len(committed) - 1; i >= 0; i-- {
		step := committed[i]
		if err := step.Compensate(ctx); err != nil {
			slog.Error("compensation failed, manual reconciliation needed",
				"workflow", workflow, "step", step.Name, "error", err)
			uncompensated = append(uncompensated, step.Name)
		}
	}

	state := StateRolledBack
	if len(uncompensated) > 0 {
		state = StatePartiallyFailed
	}

	res.State = state
	res.Err = &Error{
		Workflow:      workflow,
		Step:          failedStep,
		State:         state,
		Err:           cause,
		Uncompensated: uncompensated,
	}
	return res
}
