// internal/app/features/geocode/routes.go
package geocode

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/search", h.ServeSearch)
	r.Get("/reverse", h.ServeReverse)
	r.Post("/manual", h.HandleManual)
	return r
}
