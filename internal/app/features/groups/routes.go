// internal/app/features/groups/routes.go
package groups

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// READ
		pr.Get("/", h.ServeList)
		pr.Get("/stream", h.ServeStream)
		pr.Get("/mine", h.ServeMine)
		pr.Get("/mine/stream", h.ServeMineStream)
		pr.Get("/{id}", h.ServeGet)
		pr.Get("/{id}/members", h.ServeMembers)
		pr.Get("/{id}/members/stream", h.ServeMembersStream)

		// WRITE
		pr.Group(func(wr chi.Router) {
			wr.Use(authz.RequirePermission(models.CanManageGroups))
			wr.Post("/", h.HandleCreate)
			wr.Patch("/{id}", h.HandleUpdate)
			wr.Delete("/{id}", h.HandleDelete)
			wr.Post("/{id}/members", h.HandleAddMember)
			wr.Delete("/{id}/members/{userID}", h.HandleRemoveMember)
		})
	})

	return r
}
