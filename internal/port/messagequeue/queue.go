// Package messagequeue defines the message queue port (interface).
//
// Event publishing is best-effort and never load-bearing for saga
// correctness: a failed publish is logged and dropped.
package messagequeue

import "context"

// Handler processes a message received from the queue.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the queue connection.
	Close() error
}

// Subjects for provisioning and audit lifecycle events.
const (
	SubjectTenantCreated      = "provisioning.tenant.created"
	SubjectDepartmentCreated  = "provisioning.department.created"
	SubjectUserCreated        = "provisioning.user.created"
	SubjectSagaRolledBack     = "provisioning.saga.rolled_back"
	SubjectSagaPartialFailure = "provisioning.saga.partial_failure"
	SubjectProgramTransition  = "audit.program.transition"
)
