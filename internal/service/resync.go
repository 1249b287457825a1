package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/port/database"
)

// ResyncService re-pushes the authoritative local copy of a tenant subtree
// (tenant, roles, departments, users) to the collaborators. Because every
// sync operation is an idempotent upsert, this is the recovery path for any
// divergence left behind by an aborted workflow: remote writes are never
// compensated, they are converged here.
type ResyncService struct {
	store   database.Store
	syncers []collaborator.Syncer
}

// NewResyncService creates a ResyncService targeting the given collaborators.
func NewResyncService(store database.Store, syncers ...collaborator.Syncer) *ResyncService {
	return &ResyncService{store: store, syncers: syncers}
}

// Tenant pushes the tenant and everything under it to all collaborators,
// fanning out one goroutine per collaborator. Within a collaborator the
// order is tenant, roles, departments, users, so referential fields always
// point at already-synced entities.
func (s *ResyncService) Tenant(ctx context.Context, tenantID string) error {
	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	roles, err := s.store.ListRoles(ctx, tenantID)
	if err != nil {
		return err
	}
	departments, err := s.store.ListDepartments(ctx, tenantID)
	if err != nil {
		return err
	}
	users, err := s.store.ListUsers(ctx, tenantID)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, syncer := range s.syncers {
		g.Go(func() error {
			if err := s.pushSubtree(ctx, syncer, t, roles, departments, users); err != nil {
				return fmt.Errorf("resync %s to %s: %w", tenantID, syncer.Name(), err)
			}
			slog.Info("tenant resynced", "tenant_id", tenantID, "collaborator", syncer.Name())
			return nil
		})
	}
	return g.Wait()
}

func (s *ResyncService) pushSubtree(
	ctx context.Context,
	syncer collaborator.Syncer,
	t *tenant.Tenant,
	roles []role.Role,
	departments []department.Department,
	users []user.User,
) error {
	if err := syncer.SyncTenant(ctx, *t); err != nil {
		return err
	}
	for _, r := range roles {
		if err := syncer.SyncRole(ctx, r); err != nil {
			return err
		}
	}
	for _, d := range departments {
		if err := syncer.SyncDepartment(ctx, d); err != nil {
			return err
		}
	}
	for _, u := range users {
		if err := syncer.SyncUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
