// Package saga implements sequential cross-service workflows with bounded
// retry and best-effort compensation. A workflow is a declarative list of
// steps, each either local (a write to this service's own store, with an
// inverse operation) or remote (an idempotent call to a collaborator). There
// is no global transaction coordinator; when a step fails fatally, committed
// local writes are undone in reverse order and remote writes are left to
// converge through idempotent resynchronization.
package saga

import "context"

// Outcome classifies the result of executing one step.
type Outcome int

const (
	// Success means the step completed and the workflow advances.
	Success Outcome = iota
	// RetryableFailure means the target was unreachable or answered with a
	// server error; the executor may attempt the step again.
	RetryableFailure
	// FatalFailure means the step was rejected (bad input, uniqueness
	// violation) or exhausted its retries; the workflow aborts.
	FatalFailure
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RetryableFailure:
		return "retryable_failure"
	case FatalFailure:
		return "fatal_failure"
	}
	return "unknown"
}

// Kind distinguishes local store writes from remote collaborator calls.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Step is one unit of a workflow. Run performs the step; Compensate, set
// only on local steps, undoes it. Remote writes are never compensated:
// collaborators expose no retraction endpoint, and their upserts are safe to
// repeat during a later resync.
type Step struct {
	Name       string
	Kind       Kind
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Local builds a step that commits a write to the owning store. compensate
// is the inverse operation applied if a later step fails fatally.
func Local(name string, run, compensate func(ctx context.Context) error) Step {
	return Step{Name: name, Kind: KindLocal, Run: run, Compensate: compensate}
}

// Remote builds a step that calls a collaborator through the executor's
// retry policy.
func Remote(name string, call func(ctx context.Context) error) Step {
	return Step{Name: name, Kind: KindRemote, Run: call}
}

// State is the lifecycle of one workflow instance.
type State string

const (
	StateNotStarted      State = "not_started"
	StateRunning         State = "running"
	StateCommitted       State = "committed"
	StateAborting        State = "aborting"
	StateRolledBack      State = "rolled_back"
	StatePartiallyFailed State = "partially_failed"
)
