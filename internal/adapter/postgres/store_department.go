package postgres

import (
	"context"
	"fmt"

	"github.com/baron-png/quality-core/internal/domain/department"
)

func (s *Store) CreateDepartment(ctx context.Context, d *department.Department) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO departments (id, name, code, tenant_id, head_id, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Code, d.TenantID, nullIfEmpty(d.HeadID), nullIfEmpty(d.CreatedBy),
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "create department %s", d.Code)
	}
	return nil
}

func (s *Store) GetDepartment(ctx context.Context, id string) (*department.Department, error) {
	var d department.Department
	var headID, createdBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, code, tenant_id, head_id, created_by, created_at, updated_at
		 FROM departments WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Code, &d.TenantID, &headID, &createdBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get department %s", id)
	}
	if headID != nil {
		d.HeadID = *headID
	}
	if createdBy != nil {
		d.CreatedBy = *createdBy
	}
	return &d, nil
}

func (s *Store) ListDepartments(ctx context.Context, tenantID string) ([]department.Department, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, code, tenant_id, head_id, created_by, created_at, updated_at
		 FROM departments WHERE tenant_id = $1 ORDER BY name ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var departments []department.Department
	for rows.Next() {
		var d department.Department
		var headID, createdBy *string
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.TenantID, &headID, &createdBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		if headID != nil {
			d.HeadID = *headID
		}
		if createdBy != nil {
			d.CreatedBy = *createdBy
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// DepartmentExists reports whether a department with the given name or code
// already exists in the tenant. Checked before the saga starts so duplicate
// requests fail without touching collaborators.
func (s *Store) DepartmentExists(ctx context.Context, tenantID, name, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM departments WHERE tenant_id = $1 AND (name = $2 OR code = $3)
		 )`, tenantID, name, code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("department exists: %w", err)
	}
	return exists, nil
}

func (s *Store) DeleteDepartment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete department %s", id)
}
