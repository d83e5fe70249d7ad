// internal/app/features/users/list.go
package users

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/livews"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /users with optional role, group and q filters.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f := userstore.ListFilter{Search: query.Get(r, "q")}
	if raw := query.Get(r, "role"); raw != "" {
		f.Role = normalize.Role(raw)
	}
	if raw := query.Get(r, "group"); raw != "" {
		gid, ok := inputval.ParseObjectID(raw)
		if !ok {
			uierrors.RenderBadRequest(w, r, "Invalid group id.")
			return
		}
		f.GroupID = &gid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Users.List(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list users", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeStream handles GET /users/stream: the whole directory, re-sent on
// every change.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	defer h.Metrics.StreamOpened("users")()
	livews.Serve(w, r, h.Users.StreamAll(r.Context()), "users", h.Log)
}

// ServeGet handles GET /users/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "get user", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// ServeStatistics handles GET /users/statistics.
func (h *Handler) ServeStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	st, err := h.Users.ComputeStatistics(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "compute user statistics", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, st)
}
