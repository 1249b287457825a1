// Package department defines the department domain model. A department's
// head is provisioned as a user in the same workflow, so department creation
// nests a user-provisioning sub-saga.
package department

import (
	"errors"
	"net/mail"
	"time"
)

// Department represents an organizational unit within a tenant. Codes are
// unique within a tenant.
type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	TenantID  string    `json:"tenant_id"`
	HeadID    string    `json:"head_id,omitempty"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to provision a department together
// with its head user.
type CreateRequest struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	HeadEmail     string `json:"head_email"`
	HeadFirstName string `json:"head_first_name"`
	HeadLastName  string `json:"head_last_name"`
	HeadPassword  string `json:"head_password"` //nolint:gosec // request field, not a hardcoded secret
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Code == "" {
		return errors.New("code is required")
	}
	if r.HeadEmail == "" {
		return errors.New("head_email is required")
	}
	if _, err := mail.ParseAddress(r.HeadEmail); err != nil {
		return errors.New("invalid head_email format")
	}
	if r.HeadFirstName == "" {
		return errors.New("head_first_name is required")
	}
	if len(r.HeadPassword) < 8 {
		return errors.New("head_password must be at least 8 characters")
	}
	return nil
}
