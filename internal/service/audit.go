package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/baron-png/quality-core/internal/adapter/otel"
	"github.com/baron-png/quality-core/internal/domain"
	"github.com/baron-png/quality-core/internal/domain/audit"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/port/database"
	"github.com/baron-png/quality-core/internal/port/messagequeue"
)

// AuditService owns the audit program lifecycle. Programs are plain local
// rows; only the transition rules carry logic, and those live in the audit
// domain package. This service adds tenant scoping and actor capability
// checks on top.
type AuditService struct {
	store   database.Store
	queue   messagequeue.Queue // may be nil
	metrics *otel.Metrics      // may be nil
}

// NewAuditService creates an AuditService. queue and metrics may be nil.
func NewAuditService(store database.Store, queue messagequeue.Queue, metrics *otel.Metrics) *AuditService {
	return &AuditService{store: store, queue: queue, metrics: metrics}
}

// Create adds a program in Draft for the caller's tenant.
func (s *AuditService) Create(ctx context.Context, req audit.CreateRequest) (*audit.Program, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil || claims.TenantID == "" {
		return nil, fmt.Errorf("audit program create requires a tenant-scoped caller: %w", domain.ErrUnauthorized)
	}

	p := &audit.Program{
		ID:          uuid.NewString(),
		TenantID:    claims.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      audit.StatusDraft,
		CreatedBy:   claims.UserID,
	}
	if err := s.store.CreateProgram(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a program, enforcing tenant scope.
func (s *AuditService) Get(ctx context.Context, id string) (*audit.Program, error) {
	p, err := s.store.GetProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the caller's tenant's programs.
func (s *AuditService) List(ctx context.Context) ([]audit.Program, error) {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil || claims.TenantID == "" {
		return nil, fmt.Errorf("audit program list requires a tenant-scoped caller: %w", domain.ErrUnauthorized)
	}
	return s.store.ListPrograms(ctx, claims.TenantID)
}

// Transition applies one lifecycle action to a program. Scope is checked
// before capability, and capability before the transition table, so a
// cross-tenant caller learns nothing about the program's state.
func (s *AuditService) Transition(ctx context.Context, programID string, action audit.Action) (*audit.Program, error) {
	p, err := s.store.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, p); err != nil {
		return nil, err
	}

	claims := middleware.ClaimsFromContext(ctx)
	if !audit.Allowed(action, claims.Role) {
		return nil, fmt.Errorf("role %s may not %s audit programs: %w", claims.Role, action, domain.ErrUnauthorized)
	}

	next, err := audit.Next(p.Status, action)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateProgramStatus(ctx, p.ID, next); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ProgramTransitions.Add(ctx, 1)
	}
	s.publishTransition(ctx, p, action, next, claims.UserID)

	p.Status = next
	return p, nil
}

// checkScope rejects callers whose token names a different tenant.
func (s *AuditService) checkScope(ctx context.Context, p *audit.Program) error {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil || claims.TenantID != p.TenantID {
		return fmt.Errorf("audit program %s is outside the caller's tenant: %w", p.ID, domain.ErrUnauthorized)
	}
	return nil
}

func (s *AuditService) publishTransition(ctx context.Context, p *audit.Program, action audit.Action, next audit.Status, actor string) {
	if s.queue == nil {
		return
	}
	payload := messagequeue.ProgramTransitionPayload{
		ProgramID: p.ID,
		TenantID:  p.TenantID,
		Action:    string(action),
		From:      string(p.Status),
		To:        string(next),
		ActorID:   actor,
	}
	publishJSON(ctx, s.queue, messagequeue.SubjectProgramTransition, payload)
}
