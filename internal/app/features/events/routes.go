// internal/app/features/events/routes.go
package events

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

// Routes mounts the calendar under /events. Reading is open to visitors,
// who only see club-wide runs.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/stream", h.ServeStream)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/history", h.ServeHistory)
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/leave", h.HandleLeave)

		pr.With(authz.RequirePermission(models.CanCreateEvents)).Post("/", h.HandleCreate)
		pr.With(authz.RequirePermission(models.CanCreateEvents)).Put("/{id}", h.HandleUpdate)
		pr.With(authz.RequirePermission(models.CanCreateEvents)).Post("/{id}/cancel", h.HandleCancel)
		pr.With(authz.RequirePermission(models.CanDeleteEvents)).Delete("/{id}", h.HandleDelete)
	})

	r.Get("/{id}", h.ServeGet)
	return r
}
