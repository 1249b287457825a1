// Package tenant defines the tenant domain model. A tenant is the root of
// every other entity in the system and is synchronized by id to all
// collaborating services.
package tenant

import (
	"errors"
	"net/mail"
	"time"
)

// Type classifies the kind of institution a tenant represents.
type Type string

const (
	TypeUniversity Type = "UNIVERSITY"
	TypeCollege    Type = "COLLEGE"
	TypeSchool     Type = "SCHOOL"
	TypeInstitute  Type = "INSTITUTE"
	TypeOther      Type = "OTHER"
)

// ValidTypes is the set of all accepted tenant types.
var ValidTypes = map[Type]bool{
	TypeUniversity: true,
	TypeCollege:    true,
	TypeSchool:     true,
	TypeInstitute:  true,
	TypeOther:      true,
}

// Status represents the lifecycle state of a tenant.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Tenant represents an isolated tenant. Created once by the provisioning
// workflow; only its status changes afterwards.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Email     string    `json:"email"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to provision a new tenant together
// with its initial admin user. The admin is registered against the identity
// service during the same workflow.
type CreateRequest struct {
	Name           string `json:"name"`
	Domain         string `json:"domain"`
	Email          string `json:"email"`
	Type           Type   `json:"type"`
	AdminEmail     string `json:"admin_email"`
	AdminFirstName string `json:"admin_first_name"`
	AdminLastName  string `json:"admin_last_name"`
	AdminPassword  string `json:"admin_password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Domain == "" {
		return errors.New("domain is required")
	}
	if r.Email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email format")
	}
	if !ValidTypes[r.Type] {
		return errors.New("invalid type: must be UNIVERSITY, COLLEGE, SCHOOL, INSTITUTE, or OTHER")
	}
	if r.AdminEmail == "" {
		return errors.New("admin_email is required")
	}
	if _, err := mail.ParseAddress(r.AdminEmail); err != nil {
		return errors.New("invalid admin_email format")
	}
	if r.AdminFirstName == "" {
		return errors.New("admin_first_name is required")
	}
	if len(r.AdminPassword) < 8 {
		return errors.New("admin_password must be at least 8 characters")
	}
	return nil
}
