// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
)

// Routes mounts /notifications. Badge and permission state follow the
// device cookie, so they work signed out too.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/stream", h.ServeStream)
	r.Post("/read", h.HandleRead)
	r.Get("/permission", h.ServePermission)
	r.Post("/permission", h.HandlePermission)
	r.With(sm.RequireSignedIn).Post("/test", h.HandleTest)
	return r
}
