// internal/app/features/chat/routes.go
package chat

import (
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/{groupID}", h.ServeHistory)
	r.Get("/{groupID}/stream", h.ServeStream)
	r.Post("/{groupID}", h.HandleSend)
	return r
}
