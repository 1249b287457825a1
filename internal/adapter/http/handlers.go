// Package http exposes the provisioning and audit program APIs over REST.
package http

import (
	"net/http"

	"github.com/baron-png/quality-core/internal/domain/department"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/middleware"
	"github.com/baron-png/quality-core/internal/port/database"
	"github.com/baron-png/quality-core/internal/service"
)

// Handlers bundles the services the HTTP layer dispatches to.
type Handlers struct {
	Provisioning *service.ProvisioningService
	Resync       *service.ResyncService
	Audit        *service.AuditService
	Store        database.Store

	// Version is reported by the health endpoint.
	Version string

	// QueueConnected reports message queue connectivity for the health
	// endpoint. May be nil when the queue is not configured.
	QueueConnected func() bool
}

// scopedTenant extracts the {tenantID} URL parameter and verifies the caller
// belongs to that tenant. A mismatch is reported as 403 rather than 404 so
// the caller knows the id may exist but is out of reach.
func (h *Handlers) scopedTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := urlParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant id is required")
		return "", false
	}

	c := middleware.ClaimsFromContext(r.Context())
	if c == nil || c.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "not authorized for this tenant")
		return "", false
	}
	return tenantID, true
}

// Health reports liveness. Registered outside the auth middleware.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"service": "quality-core",
		"version": h.Version,
	}
	if h.QueueConnected != nil {
		resp["queue_connected"] = h.QueueConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTenant provisions a tenant with its ADMIN role and admin user.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.CreateRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Provisioning.CreateTenant(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListTenants(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}

func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTenant(r.Context(), urlParam(r, "tenantID"))
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTenantStatus changes a tenant's lifecycle status and pushes the new
// status to every collaborator.
func (h *Handlers) UpdateTenantStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[struct {
		Status tenant.Status `json:"status"`
	}](w, r)
	if !ok {
		return
	}

	t, err := h.Provisioning.UpdateTenantStatus(r.Context(), urlParam(r, "tenantID"), req.Status)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateDepartment provisions a department together with its head user.
func (h *Handlers) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[department.CreateRequest](w, r)
	if !ok {
		return
	}

	d, err := h.Provisioning.CreateDepartment(r.Context(), tenantID, req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) ListDepartments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	departments, err := h.Store.ListDepartments(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

// CreateUser provisions a user with pre-validated role assignments.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}

	u, err := h.Provisioning.CreateUser(r.Context(), tenantID, req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	users, err := h.Store.ListUsers(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	roles, err := h.Store.ListRoles(r.Context(), tenantID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// ResyncTenant pushes the tenant's full entity subtree to every collaborator
// again. This is the recovery path after a partial failure.
func (h *Handlers) ResyncTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := urlParam(r, "tenantID")

	if err := h.Resync.Tenant(r.Context(), tenantID); err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resynced", "tenant_id": tenantID})
}
