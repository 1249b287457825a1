package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baron-png/quality-core/internal/adapter/otel"
	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/port/collaborator"
	"github.com/baron-png/quality-core/internal/port/database"
	"github.com/baron-png/quality-core/internal/port/messagequeue"
	"github.com/baron-png/quality-core/internal/saga"
)

// ProvisioningService drives the cross-service provisioning workflows. Each
// workflow commits rows to the local store and pushes copies to the
// collaborators through the saga orchestrator; a fatal downstream failure
// rolls the local writes back.
type ProvisioningService struct {
	store        database.Store
	registrar    *Registrar
	identity     collaborator.Identity
	document     collaborator.Syncer
	notification collaborator.Syncer
	orch         *saga.Orchestrator
	queue        messagequeue.Queue // may be nil; events are best-effort
	metrics      *otel.Metrics      // may be nil
}

// NewProvisioningService creates the service. queue and metrics may be nil.
func NewProvisioningService(
	store database.Store,
	identity collaborator.Identity,
	document, notification collaborator.Syncer,
	orch *saga.Orchestrator,
	queue messagequeue.Queue,
	metrics *otel.Metrics,
) *ProvisioningService {
	return &ProvisioningService{
		store:        store,
		registrar:    NewRegistrar(identity),
		identity:     identity,
		document:     document,
		notification: notification,
		orch:         orch,
		queue:        queue,
		metrics:      metrics,
	}
}

// CreateTenant provisions a new tenant together with its ADMIN role and the
// initial admin user. Step order matters: the tenant and role must be known
// to the identity collaborator before the admin user can be registered
// against them, and the registered id is adopted as the local user key.
func (s *ProvisioningService) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	actor := actorID(ctx)
	t := &tenant.Tenant{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Domain:    req.Domain,
		Email:     req.Email,
		Type:      req.Type,
		Status:    tenant.StatusPending,
		CreatedBy: actor,
	}
	adminRole := &role.Role{
		ID:       uuid.NewString(),
		Name:     role.NameAdmin,
		TenantID: t.ID,
	}

	var adminID string
	adminUser := func() *user.User {
		return &user.User{
			ID:        adminID,
			Email:     req.AdminEmail,
			FirstName: req.AdminFirstName,
			LastName:  req.AdminLastName,
			TenantID:  t.ID,
			CreatedBy: actor,
		}
	}

	steps := []saga.Step{
		saga.Local("commit tenant",
			func(ctx context.Context) error { return s.store.CreateTenant(ctx, t) },
			func(ctx context.Context) error { return s.store.DeleteTenant(ctx, t.ID) },
		),
		saga.Remote("sync tenant to identity", func(ctx context.Context) error {
			return s.identity.SyncTenant(ctx, *t)
		}),
		saga.Local("commit admin role",
			func(ctx context.Context) error { return s.store.CreateRole(ctx, adminRole) },
			func(ctx context.Context) error { return s.store.DeleteRole(ctx, adminRole.ID) },
		),
		saga.Remote("sync admin role to identity", func(ctx context.Context) error {
			return s.identity.SyncRole(ctx, *adminRole)
		}),
		s.registrar.Step("register admin user", func() collaborator.RegisterRequest {
			return collaborator.RegisterRequest{
				Email:      req.AdminEmail,
				Password:   req.AdminPassword,
				FirstName:  req.AdminFirstName,
				LastName:   req.AdminLastName,
				RoleIDs:    []string{adminRole.ID},
				TenantID:   t.ID,
				TenantName: t.Name,
			}
		}, &adminID),
		saga.Local("commit admin user",
			func(ctx context.Context) error { return s.store.CreateUser(ctx, adminUser()) },
			func(ctx context.Context) error { return s.store.DeleteUser(ctx, adminID) },
		),
		saga.Local("assign admin role",
			func(ctx context.Context) error {
				return s.store.AssignRoles(ctx, adminID, []string{adminRole.ID})
			},
			func(ctx context.Context) error { return s.store.RemoveRoles(ctx, adminID) },
		),
		saga.Remote("sync tenant to document", func(ctx context.Context) error {
			return s.document.SyncTenant(ctx, *t)
		}),
		saga.Remote("sync tenant to notification", func(ctx context.Context) error {
			return s.notification.SyncTenant(ctx, *t)
		}),
		saga.Remote("sync admin user to notification", func(ctx context.Context) error {
			u := adminUser()
			u.RoleIDs = []string{adminRole.ID}
			return s.notification.SyncUser(ctx, *u)
		}),
	}

	if err := s.run(ctx, "create_tenant", t.ID, steps); err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectTenantCreated, messagequeue.EntityCreatedPayload{
		EntityID:  t.ID,
		TenantID:  t.ID,
		CreatedBy: actor,
	})
	return t, nil
}

// CreateDepartment provisions a department and its head user in one
// workflow. The head is registered against the identity collaborator before
// the department row is committed, so the row's head reference is always a
// real identity.
func (s *ProvisioningService) CreateDepartment(ctx context.Context, tenantID string, req department.CreateRequest) (*department.Department, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.DepartmentExists(ctx, tenantID, req.Name, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("department %q/%q: %w", req.Name, req.Code, domain.ErrConflict)
	}

	actor := actorID(ctx)
	var headRole *role.Role
	var headRoleCreated bool
	var headID string
	d := &department.Department{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Code:      req.Code,
		TenantID:  tenantID,
		CreatedBy: actor,
	}
	headUser := func() *user.User {
		return &user.User{
			ID:        headID,
			Email:     req.HeadEmail,
			FirstName: req.HeadFirstName,
			LastName:  req.HeadLastName,
			TenantID:  tenantID,
			CreatedBy: actor,
		}
	}

	steps := []saga.Step{
		saga.Local("ensure head role",
			func(ctx context.Context) error {
				r, created, err := s.findOrCreateRole(ctx, tenantID, role.NameHead)
				if err != nil {
					return err
				}
				headRole, headRoleCreated = r, created
				return nil
			},
			func(ctx context.Context) error {
				if !headRoleCreated {
					return nil
				}
				return s.store.DeleteRole(ctx, headRole.ID)
			},
		),
		saga.Remote("sync head role to identity", func(ctx context.Context) error {
			return s.identity.SyncRole(ctx, *headRole)
		}),
		s.registrar.Step("register head user", func() collaborator.RegisterRequest {
			return collaborator.RegisterRequest{
				Email:      req.HeadEmail,
				Password:   req.HeadPassword,
				FirstName:  req.HeadFirstName,
				LastName:   req.HeadLastName,
				RoleIDs:    []string{headRole.ID},
				TenantID:   tenantID,
				TenantName: t.Name,
			}
		}, &headID),
		saga.Local("commit head user",
			func(ctx context.Context) error { return s.store.CreateUser(ctx, headUser()) },
			func(ctx context.Context) error { return s.store.DeleteUser(ctx, headID) },
		),
		saga.Local("assign head role",
			func(ctx context.Context) error {
				return s.store.AssignRoles(ctx, headID, []string{headRole.ID})
			},
			func(ctx context.Context) error { return s.store.RemoveRoles(ctx, headID) },
		),
		saga.Local("commit department",
			func(ctx context.Context) error {
				d.HeadID = headID
				return s.store.CreateDepartment(ctx, d)
			},
			func(ctx context.Context) error { return s.store.DeleteDepartment(ctx, d.ID) },
		),
		saga.Remote("sync department to document", func(ctx context.Context) error {
			return s.document.SyncDepartment(ctx, *d)
		}),
		saga.Remote("sync head user to document", func(ctx context.Context) error {
			u := headUser()
			u.RoleIDs = []string{headRole.ID}
			u.DepartmentID = d.ID
			return s.document.SyncUser(ctx, *u)
		}),
		saga.Remote("sync head user to notification", func(ctx context.Context) error {
			u := headUser()
			u.RoleIDs = []string{headRole.ID}
			u.DepartmentID = d.ID
			return s.notification.SyncUser(ctx, *u)
		}),
		saga.Remote("sync department to notification", func(ctx context.Context) error {
			return s.notification.SyncDepartment(ctx, *d)
		}),
	}

	if err := s.run(ctx, "create_department", tenantID, steps); err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectDepartmentCreated, messagequeue.EntityCreatedPayload{
		EntityID:  d.ID,
		TenantID:  tenantID,
		CreatedBy: actor,
	})
	return d, nil
}

// CreateUser provisions a regular user: registers it against the identity
// collaborator, commits it locally under the identity-issued id, and pushes
// the copy to the document collaborator.
func (s *ProvisioningService) CreateUser(ctx context.Context, tenantID string, req user.CreateRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	t, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.GetRolesByIDs(ctx, tenantID, req.RoleIDs)
	if err != nil {
		return nil, err
	}
	if len(roles) != len(req.RoleIDs) {
		return nil, fmt.Errorf("one or more roles do not belong to tenant %s: %w", tenantID, domain.ErrValidation)
	}
	if req.DepartmentID != "" {
		dept, err := s.store.GetDepartment(ctx, req.DepartmentID)
		if err != nil {
			return nil, err
		}
		if dept.TenantID != tenantID {
			return nil, fmt.Errorf("department %s does not belong to tenant %s: %w", req.DepartmentID, tenantID, domain.ErrValidation)
		}
	}

	actor := actorID(ctx)
	var userID string
	newUser := func() *user.User {
		return &user.User{
			ID:           userID,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			TenantID:     tenantID,
			DepartmentID: req.DepartmentID,
			CreatedBy:    actor,
		}
	}

	steps := []saga.Step{
		saga.Remote("sync roles to document", func(ctx context.Context) error {
			for _, r := range roles {
				if err := s.document.SyncRole(ctx, r); err != nil {
					return err
				}
			}
			return nil
		}),
		s.registrar.Step("register user", func() collaborator.RegisterRequest {
			return collaborator.RegisterRequest{
				Email:      req.Email,
				Password:   req.Password,
				FirstName:  req.FirstName,
				LastName:   req.LastName,
				RoleIDs:    req.RoleIDs,
				TenantID:   tenantID,
				TenantName: t.Name,
			}
		}, &userID),
		saga.Local("commit user",
			func(ctx context.Context) error { return s.store.CreateUser(ctx, newUser()) },
			func(ctx context.Context) error { return s.store.DeleteUser(ctx, userID) },
		),
		saga.Local("assign roles",
			func(ctx context.Context) error { return s.store.AssignRoles(ctx, userID, req.RoleIDs) },
			func(ctx context.Context) error { return s.store.RemoveRoles(ctx, userID) },
		),
		saga.Remote("sync user to document", func(ctx context.Context) error {
			u := newUser()
			u.RoleIDs = req.RoleIDs
			return s.document.SyncUser(ctx, *u)
		}),
	}

	if err := s.run(ctx, "create_user", tenantID, steps); err != nil {
		return nil, err
	}

	u := newUser()
	u.RoleIDs = req.RoleIDs

	s.publish(ctx, messagequeue.SubjectUserCreated, messagequeue.EntityCreatedPayload{
		EntityID:  u.ID,
		TenantID:  tenantID,
		CreatedBy: actor,
	})
	return u, nil
}

// UpdateTenantStatus applies a status transition and pushes the new state to
// every collaborator. The local write is compensated by restoring the prior
// status if a sync fails fatally.
func (s *ProvisioningService) UpdateTenantStatus(ctx context.Context, id string, status tenant.Status) (*tenant.Tenant, error) {
	switch status {
	case tenant.StatusPending, tenant.StatusActive, tenant.StatusSuspended:
	default:
		return nil, fmt.Errorf("unknown tenant status %q: %w", status, domain.ErrValidation)
	}

	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := t.Status

	steps := []saga.Step{
		saga.Local("commit status",
			func(ctx context.Context) error {
				if err := s.store.UpdateTenantStatus(ctx, id, status); err != nil {
					return err
				}
				t.Status = status
				return nil
			},
			func(ctx context.Context) error {
				t.Status = prev
				return s.store.UpdateTenantStatus(ctx, id, prev)
			},
		),
		saga.Remote("sync tenant to identity", func(ctx context.Context) error {
			return s.identity.SyncTenant(ctx, *t)
		}),
		saga.Remote("sync tenant to document", func(ctx context.Context) error {
			return s.document.SyncTenant(ctx, *t)
		}),
		saga.Remote("sync tenant to notification", func(ctx context.Context) error {
			return s.notification.SyncTenant(ctx, *t)
		}),
	}

	if err := s.run(ctx, "update_tenant_status", id, steps); err != nil {
		return nil, err
	}
	return t, nil
}

// findOrCreateRole returns the tenant's role with the given name, creating
// it if absent. created reports whether this call created the row, which
// decides whether compensation removes it.
func (s *ProvisioningService) findOrCreateRole(ctx context.Context, tenantID, name string) (r *role.Role, created bool, err error) {
	r, err = s.store.GetRoleByName(ctx, tenantID, name)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	r = &role.Role{ID: uuid.NewString(), Name: name, TenantID: tenantID}
	if err := s.store.CreateRole(ctx, r); err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// run drives one workflow through the orchestrator and reports metrics and
// failure events.
func (s *ProvisioningService) run(ctx context.Context, workflow, tenantID string, steps []saga.Step) error {
	ctx, span := otel.StartWorkflowSpan(ctx, workflow, tenantID)
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.SagasStarted.Add(ctx, 1)
	}

	res := s.orch.Run(ctx, workflow, instrumentSteps(steps))

	if s.metrics != nil {
		s.metrics.SagaDuration.Record(ctx, time.Since(start).Seconds())
		for _, attempts := range res.Attempts {
			if attempts > 1 {
				s.metrics.StepRetries.Add(ctx, int64(attempts-1))
			}
		}
	}

	switch res.State {
	case saga.StateCommitted:
		if s.metrics != nil {
			s.metrics.SagasCommitted.Add(ctx, 1)
		}
		return nil
	case saga.StatePartiallyFailed:
		if s.metrics != nil {
			s.metrics.SagasPartiallyFailed.Add(ctx, 1)
		}
		s.publish(ctx, messagequeue.SubjectSagaPartialFailure, messagequeue.SagaFailurePayload{
			Workflow:      workflow,
			FailedStep:    res.Err.Step,
			Error:         res.Err.Err.Error(),
			Uncompensated: res.Err.Uncompensated,
		})
	default:
		if s.metrics != nil {
			s.metrics.SagasRolledBack.Add(ctx, 1)
		}
		s.publish(ctx, messagequeue.SubjectSagaRolledBack, messagequeue.SagaFailurePayload{
			Workflow:   workflow,
			FailedStep: res.Err.Step,
			Error:      res.Err.Err.Error(),
		})
	}
	return res.Err
}

// StartFailureSubscriber consumes saga partial-failure events and logs the
// uncompensated writes for operator follow-up; the resync endpoint is the
// repair path. Returns a no-op cancel when no queue is configured.
func (s *ProvisioningService) StartFailureSubscriber(ctx context.Context) (func(), error) {
	if s.queue == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.SubjectSagaPartialFailure,
		func(ctx context.Context, _ string, data []byte) error {
			var p messagequeue.SagaFailurePayload
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("decode saga failure event: %w", err)
			}
			slog.ErrorContext(ctx, "saga partially failed, local state needs reconciliation",
				"workflow", p.Workflow,
				"failed_step", p.FailedStep,
				"uncompensated", p.Uncompensated,
			)
			return nil
		})
}

// instrumentSteps wraps each step's Run in a trace span nested under the
// workflow span. Retried attempts each get their own span.
func instrumentSteps(steps []saga.Step) []saga.Step {
	for i := range steps {
		name, kind, run := steps[i].Name, steps[i].Kind, steps[i].Run
		steps[i].Run = func(ctx context.Context) error {
			ctx, span := otel.StartStepSpan(ctx, name, kind == saga.KindRemote)
			defer span.End()
			err := run(ctx)
			if err != nil {
				span.RecordError(err)
			}
			return err
		}
	}
	return steps
}

// publish sends a lifecycle event, best-effort. A nil queue or a failed
// publish never affects the workflow result.
func (s *ProvisioningService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	publishJSON(ctx, s.queue, subject, payload)
}

// publishJSON marshals and publishes one event. Failures are logged and
// dropped; events are never load-bearing.
func publishJSON(ctx context.Context, queue messagequeue.Queue, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal event payload", "subject", subject, "error", err)
		return
	}
	if err := queue.Publish(ctx, subject, data); err != nil {
		slog.Error("failed to publish event", "subject", subject, "error", err)
	}
}

// actorID returns the caller's user id from the request claims, or "".
func actorID(ctx context.Context) string {
	if c := middleware.ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}
