// internal/app/features/users/routes.go
package users

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// Routes mounts the user directory under /users. Everything needs
// manage_users; statistics only needs view_statistics.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.With(authz.RequirePermission(models.CanViewStatistics)).Get("/statistics", h.ServeStatistics)

	r.Group(func(pr chi.Router) {
		pr.Use(authz.RequirePermission(models.CanManageUsers))
		pr.Get("/", h.ServeList)
		pr.Get("/stream", h.ServeStream)
		pr.Post("/", h.HandleCreate)
		pr.Get("/{id}", h.ServeGet)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
		pr.Post("/{id}/enable", h.HandleSetActive(true))
		pr.Post("/{id}/disable", h.HandleSetActive(false))
	})
	return r
}
