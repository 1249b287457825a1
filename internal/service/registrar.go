package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/saga"
)

// Registrar wraps user registration against the identity collaborator. It is
// the one provisioning call that produces a new canonical id rather than
// accepting one: every workflow registers a user here first and adopts the
// returned id as the local primary key, which is what keeps the
// user-never-without-identity invariant true by construction order.
type Registrar struct {
	identity collaborator.Identity
}

// NewRegistrar creates a Registrar backed by the identity collaborator.
func NewRegistrar(identity collaborator.Identity) *Registrar {
	return &Registrar{identity: identity}
}

// Register creates the user in the identity service and returns its record.
// Email is normalized before the call so the identity service and the local
// store agree on the uniqueness key.
func (r *Registrar) Register(ctx context.Context, req collaborator.RegisterRequest) (*collaborator.RegisteredUser, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return nil, fmt.Errorf("register: email is required: %w", domain.ErrValidation)
	}
	if req.TenantID == "" {
		return nil, fmt.Errorf("register: tenant id is required: %w", domain.ErrValidation)
	}
	return r.identity.Register(ctx, req)
}

// Step builds the remote saga step for a registration. The request is built
// lazily at run time because its fields (role ids in particular) may be
// produced by earlier steps; the canonical id is delivered through out.
func (r *Registrar) Step(name string, build func() collaborator.RegisterRequest, out *string) saga.Step {
	return saga.Remote(name, func(ctx context.Context) error {
		registered, err := r.Register(ctx, build())
		if err != nil {
			return err
		}
		*out = registered.ID
		return nil
	})
}
