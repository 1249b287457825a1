package postgres

import (
	"context"
	"fmt"

	"github.com/baron-png/quality-core/internal/domain/user"
)

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, tenant_id, department_id, verified, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.TenantID,
		nullIfEmpty(u.DepartmentID), u.Verified, nullIfEmpty(u.CreatedBy),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "create user %s", u.Email)
	}
	if len(u.RoleIDs) > 0 {
		if err := s.AssignRoles(ctx, u.ID, u.RoleIDs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	var departmentID, createdBy *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, tenant_id, department_id, verified, created_by, created_at, updated_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.TenantID,
		&departmentID, &u.Verified, &createdBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	if departmentID != nil {
		u.DepartmentID = *departmentID
	}
	if createdBy != nil {
		u.CreatedBy = *createdBy
	}

	u.RoleIDs, err = s.userRoleIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, tenantID string) ([]user.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, first_name, last_name, tenant_id, department_id, verified, created_by, created_at, updated_at
		 FROM users WHERE tenant_id = $1 ORDER BY created_at ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		var u user.User
		var departmentID, createdBy *string
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.TenantID,
			&departmentID, &u.Verified, &createdBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if departmentID != nil {
			u.DepartmentID = *departmentID
		}
		if createdBy != nil {
			u.CreatedBy = *createdBy
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		users[i].RoleIDs, err = s.userRoleIDs(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete user %s", id)
}

// AssignRoles links a user to the given roles. Duplicate assignments are
// ignored so saga retries stay idempotent.
func (s *Store) AssignRoles(ctx context.Context, userID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, userID, roleID)
		if err != nil {
			return fmt.Errorf("assign role %s to user %s: %w", roleID, userID, err)
		}
	}
	return nil
}

// RemoveRoles removes all role assignments for a user. Used by saga
// compensation; removing zero rows is not an error.
func (s *Store) RemoveRoles(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("remove roles for user %s: %w", userID, err)
	}
	return nil
}

func (s *Store) userRoleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("user roles %s: %w", userID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
