package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tenants ---

func (s *Store) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (id, name, domain, email, type, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Domain, t.Email, t.Type, t.Status, nullIfEmpty(t.CreatedBy),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "create tenant %s", t.Domain)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var createdBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, domain, email, type, status, created_by, created_at, updated_at
		 FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Domain, &t.Email, &t.Type, &t.Status, &createdBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	if createdBy != nil {
		t.CreatedBy = *createdBy
	}
	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, domain, email, type, status, created_by, created_at, updated_at
		 FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		var createdBy *string
		if err := rows.Scan(&t.ID, &t.Name, &t.Domain, &t.Email, &t.Type, &t.Status, &createdBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		if createdBy != nil {
			t.CreatedBy = *createdBy
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) UpdateTenantStatus(ctx context.Context, id string, status tenant.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	return execExpectOne(tag, err, "update tenant %s status", id)
}

func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete tenant %s", id)
}

// --- Roles ---

func (s *Store) CreateRole(ctx context.Context, r *role.Role) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO roles (id, name, description, tenant_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		r.ID, r.Name, r.Description, r.TenantID,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "create role %s", r.Name)
	}
	return nil
}

func (s *Store) GetRoleByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	var r role.Role
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, tenant_id, created_at, updated_at
		 FROM roles WHERE tenant_id = $1 AND name = $2`, tenantID, name,
	).Scan(&r.ID, &r.Name, &r.Description, &r.TenantID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get role %s", name)
	}
	return &r, nil
}

func (s *Store) GetRolesByIDs(ctx context.Context, tenantID string, ids []string) ([]role.Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, tenant_id, created_at, updated_at
		 FROM roles WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("get roles by ids: %w", err)
	}
	defer rows.Close()

	var roles []role.Role
	for rows.Next() {
		var r role.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.TenantID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]role.Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, tenant_id, created_at, updated_at
		 FROM roles WHERE tenant_id = $1 ORDER BY name ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []role.Role
	for rows.Next() {
		var r role.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.TenantID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete role %s", id)
}
