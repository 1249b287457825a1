package postgres

import (
	"context"
	"fmt"

	"github.com/baron-png/quality-core/internal/domain/audit"
)

func (s *Store) CreateProgram(ctx context.Context, p *audit.Program) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO audit_programs (id, tenant_id, name, description, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		p.ID, p.TenantID, p.Name, p.Description, p.Status, nullIfEmpty(p.CreatedBy),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "create audit program %s", p.Name)
	}
	return nil
}

func (s *Store) GetProgram(ctx context.Context, id string) (*audit.Program, error) {
	var p audit.Program
	var createdBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, description, status, created_by, created_at, updated_at
		 FROM audit_programs WHERE id = $1`, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get audit program %s", id)
	}
	if createdBy != nil {
		p.CreatedBy = *createdBy
	}
	return &p, nil
}

func (s *Store) ListPrograms(ctx context.Context, tenantID string) ([]audit.Program, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, name, description, status, created_by, created_at, updated_at
		 FROM audit_programs WHERE tenant_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list audit programs: %w", err)
	}
	defer rows.Close()

	var programs []audit.Program
	for rows.Next() {
		var p audit.Program
		var createdBy *string
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &createdBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan audit program: %w", err)
		}
		if createdBy != nil {
			p.CreatedBy = *createdBy
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (s *Store) UpdateProgramStatus(ctx context.Context, id string, status audit.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audit_programs SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	return execExpectOne(tag, err, "update audit program %s status", id)
}
