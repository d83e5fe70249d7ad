// internal/app/features/dashboard/routes.go
package dashboard

import "github.com/go-chi/chi/v5"

// Routes wires the dashboard under whatever mount point the top-level
// router chooses (e.g., "/dashboard"). Anonymous visitors get the guest
// dashboard, so no sign-in is required.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeDashboard)
	return r
}
