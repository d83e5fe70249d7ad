// internal/app/features/accessibility/routes.go
package accessibility

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeProfile)
	r.Put("/", h.HandleSave)
	r.Delete("/", h.HandleReset)
	r.Post("/wizard/complete", h.HandleCompleteWizard)
	return r
}
