// Package database defines the storage port (interface) for the service's
// own data store. The delete operations exist for saga compensation: each
// one is the inverse of a create committed earlier in a workflow.
package database

import (
	"context"

	"github.com/baron-png/quality-core/internal/domain/audit"
	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
)

// Store is the port interface implemented by the PostgreSQL adapter.
// Uniqueness (tenant domain, user email globally, role name and department
// code within a tenant) is enforced here, not by the orchestrator; violations
// surface as domain.ErrConflict.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t *tenant.Tenant) error
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context) ([]tenant.Tenant, error)
	UpdateTenantStatus(ctx context.Context, id string, status tenant.Status) error
	DeleteTenant(ctx context.Context, id string) error

	// Roles
	CreateRole(ctx context.Context, r *role.Role) error
	GetRoleByName(ctx context.Context, tenantID, name string) (*role.Role, error)
	GetRolesByIDs(ctx context.Context, tenantID string, ids []string) ([]role.Role, error)
	ListRoles(ctx context.Context, tenantID string) ([]role.Role, error)
	DeleteRole(ctx context.Context, id string) error

	// Departments
	CreateDepartment(ctx context.Context, d *department.Department) error
	GetDepartment(ctx context.Context, id string) (*department.Department, error)
	ListDepartments(ctx context.Context, tenantID string) ([]department.Department, error)
	DepartmentExists(ctx context.Context, tenantID, name, code string) (bool, error)
	DeleteDepartment(ctx context.Context, id string) error

	// Users
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	ListUsers(ctx context.Context, tenantID string) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
	AssignRoles(ctx context.Context, userID string, roleIDs []string) error
	RemoveRoles(ctx context.Context, userID string) error

	// Audit programs
	CreateProgram(ctx context.Context, p *audit.Program) error
	GetProgram(ctx context.Context, id string) (*audit.Program, error)
	ListPrograms(ctx context.Context, tenantID string) ([]audit.Program, error)
	UpdateProgramStatus(ctx context.Context, id string, status audit.Status) error
}
