package saga

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/baron-png/quality-core/internal/domain"
)

// RetryPolicy bounds the executor's retry behavior. Only retryable failures
// are attempted again; a retryable failure that exhausts MaxAttempts is
// escalated to FatalFailure for the orchestrator.
type RetryPolicy struct {
	MaxAttempts uint
	Base        time.Duration
	Cap         time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy mirrors the 3-attempt retry used across the system for
// collaborator calls: base 500ms, doubling, capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Base:        500 * time.Millisecond,
		Cap:         5 * time.Second,
		Multiplier:  2,
	}
}

// StepResult reports how a step execution ended.
type StepResult struct {
	Outcome  Outcome
	Attempts int
	Err      error
}

// Executor performs one step with bounded retry and classifies the outcome.
type Executor struct {
	policy RetryPolicy
}

// NewExecutor creates an Executor with the given retry policy.
func NewExecutor(policy RetryPolicy) *Executor {
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Executor{policy: policy}
}

// Classify maps an error to the outcome tri-state. Only
// domain.ErrUnavailable (transport failures, timeouts, 5xx) is retryable;
// validation and uniqueness errors never benefit from retry.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, domain.ErrUnavailable):
		return RetryableFailure
	default:
		return FatalFailure
	}
}

// Execute runs the step under the retry policy. The returned outcome is
// either Success or FatalFailure: retryable failures are retried internally
// and escalated once the attempt budget is spent.
func (e *Executor) Execute(ctx context.Context, step Step) StepResult {
	attempts := 0

	operation := func() (struct{}, error) {
		attempts++
		err := step.Run(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if Classify(err) == RetryableFailure {
			slog.Warn("step attempt failed, will retry",
				"step", step.Name, "attempt", attempts, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.policy.Base
	b.MaxInterval = e.policy.Cap
	b.Multiplier = e.policy.Multiplier

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.policy.MaxAttempts),
	)
	if err != nil {
		return StepResult{Outcome: FatalFailure, Attempts: attempts, Err: err}
	}
	return StepResult{Outcome: Success, Attempts: attempts}
}
