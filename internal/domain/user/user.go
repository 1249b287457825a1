// Package user defines the user domain model. User ids are issued by the
// identity collaborator and reused as the local primary key; that shared id
// is the correlation key across every service.
package user

import (
	"errors"
	"net/mail"
	"time"
)

// User represents a provisioned user within a tenant. A local User row must
// never exist without an identity record of the same id; the provisioning
// workflows register against the identity service before committing locally.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	TenantID     string    `json:"tenant_id"`
	DepartmentID string    `json:"department_id,omitempty"`
	RoleIDs      []string  `json:"role_ids"`
	Verified     bool      `json:"verified"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateRequest is the input for provisioning a new user.
type CreateRequest struct {
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Password     string   `json:"password"` //nolint:gosec // request field, not a hardcoded secret
	RoleIDs      []string `json:"role_ids"`
	DepartmentID string   `json:"department_id,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if r.FirstName == "" {
		return errors.New("first_name is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(r.RoleIDs) == 0 {
		return errors.New("at least one role is required")
	}
	return nil
}

// Claims is the caller identity carried in the forwarded bearer token.
type Claims struct {
	UserID   string `json:"sub"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tid"`
}
