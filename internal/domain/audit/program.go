// Package audit defines the audit program entity and its status lifecycle.
package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/baron-png/quality-core/internal/domain/role"
)

// Status represents the lifecycle state of an audit program.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusActive          Status = "ACTIVE"
)

// Action is a requested status transition.
type Action string

const (
	ActionSubmit  Action = "submit"  // Draft -> PendingApproval
	ActionApprove Action = "approve" // PendingApproval -> Active
	ActionReject  Action = "reject"  // PendingApproval -> Draft
	ActionReopen  Action = "reopen"  // Active -> Draft
)

// ErrTransition indicates the requested action is not defined from the
// program's current status.
var ErrTransition = errors.New("transition not allowed")

// transitions maps (current status, action) to the next status. Any pair
// absent from this table is rejected.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusPendingApproval,
	},
	StatusPendingApproval: {
		ActionApprove: StatusActive,
		ActionReject:  StatusDraft,
	},
	StatusActive: {
		ActionReopen: StatusDraft,
	},
}

// capabilities maps each action to the role names allowed to perform it.
// Submitting is reserved for the management representative; approval,
// rejection and reopening are admin operations.
var capabilities = map[Action]map[string]bool{
	ActionSubmit:  {role.NameManagementRep: true},
	ActionApprove: {role.NameAdmin: true},
	ActionReject:  {role.NameAdmin: true},
	ActionReopen:  {role.NameAdmin: true},
}

// Next returns the status reached by applying action from current.
func Next(current Status, action Action) (Status, error) {
	next, ok := transitions[current][action]
	if !ok {
		return "", fmt.Errorf("%s from %s: %w", action, current, ErrTransition)
	}
	return next, nil
}

// Allowed reports whether the given role name may perform the action.
func Allowed(action Action, roleName string) bool {
	return capabilities[action][roleName]
}

// Program represents an audit program owned by a tenant.
type Program struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest holds the fields for creating a new audit program.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
