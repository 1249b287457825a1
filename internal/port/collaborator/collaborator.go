// Package collaborator defines the synchronization contract exposed by every
// downstream service that must observe a copy of locally-owned entities.
//
// Every operation is an idempotent upsert keyed by the entity id: calling it
// twice with an equivalent payload must not create duplicates or error. No
// ordering is guaranteed between two collaborators; the provisioning
// workflows enforce cross-collaborator ordering.
package collaborator

import (
	"context"

	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
)

// Syncer is the upsert surface of one collaborator. Implementations classify
// failures into domain.ErrValidation (fatal) and domain.ErrUnavailable
// (retryable); the saga executor relies on that distinction.
type Syncer interface {
	// Name identifies the collaborator in logs and saga step names.
	Name() string

	SyncTenant(ctx context.Context, t tenant.Tenant) error
	SyncRole(ctx context.Context, r role.Role) error
	SyncDepartment(ctx context.Context, d department.Department) error
	SyncUser(ctx context.Context, u user.User) error
}

// RegisterRequest is the payload for registering a user against the identity
// collaborator. This is the one call in every workflow that produces a new
// canonical id rather than accepting one.
type RegisterRequest struct {
	Email      string   `json:"email"`
	Password   string   `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	RoleIDs    []string `json:"roleIds"`
	TenantID   string   `json:"tenantId"`
	TenantName string   `json:"tenantName"`
}

// RegisteredUser is the identity collaborator's record of a registered user.
// Its ID is adopted as the local primary key.
type RegisteredUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Identity is the identity collaborator: the standard sync surface plus user
// registration.
type Identity interface {
	Syncer
	Register(ctx context.Context, req RegisterRequest) (*RegisteredUser, error)
}
