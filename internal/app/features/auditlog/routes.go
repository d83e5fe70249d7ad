// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// Routes mounts the audit trail under /audit. Only the main admin reads it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Use(sm.RequireRole(string(models.RoleMainAdmin)))

		pr.Get("/", h.ServeList)
		pr.Get("/types", h.ServeTypes)
	})

	return r
}
