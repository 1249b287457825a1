package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/baron-png/quality-core/internal/domain/role"
	"github.com/baron-png/quality-core/internal/middleware"
)

// MountRoutes registers all API routes on the given router. Auth and
// idempotency middleware are expected to be mounted by the caller; role
// guards are applied here per route.
func MountRoutes(r chi.Router, h *Handlers) {
	admin := middleware.RequireRole(role.NameAdmin)
	mr := middleware.RequireRole(role.NameManagementRep)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tenants", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateTenant)
			r.With(admin).Get("/", h.ListTenants)
			r.Get("/{tenantID}", h.GetTenant)
			r.With(admin).Put("/{tenantID}/status", h.UpdateTenantStatus)
			r.With(admin).Post("/{tenantID}/resync", h.ResyncTenant)

			r.Route("/{tenantID}/departments", func(r chi.Router) {
				r.With(admin).Post("/", h.CreateDepartment)
				r.Get("/", h.ListDepartments)
			})

			r.Route("/{tenantID}/users", func(r chi.Router) {
				r.With(admin).Post("/", h.CreateUser)
				r.Get("/", h.ListUsers)
			})

			r.Get("/{tenantID}/roles", h.ListRoles)
		})

		r.Route("/audit-programs", func(r chi.Router) {
			r.With(middleware.RequireRole(role.NameManagementRep, role.NameAdmin)).Post("/", h.CreateProgram)
			r.Get("/", h.ListPrograms)
			r.Get("/{programID}", h.GetProgram)
			r.With(mr).Post("/{programID}/submit", h.SubmitProgram)
			r.With(admin).Post("/{programID}/approve", h.ApproveProgram)
			r.With(admin).Post("/{programID}/reject", h.RejectProgram)
			r.With(admin).Post("/{programID}/reopen", h.ReopenProgram)
		})
	})
}
