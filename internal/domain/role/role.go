// Package role defines tenant-scoped authorization roles. Role names are
// unique within a tenant, not globally; roles are synchronized verbatim (by
// id) to every collaborator that authorizes by role.
package role

import "time"

// Reserved role names created by the provisioning workflows.
const (
	NameAdmin         = "ADMIN"
	NameManagementRep = "MR"
	NameAuditor       = "AUDITOR"
	NameHead          = "HEAD"
)

// Role represents a named authorization level within a tenant.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	TenantID    string    `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
