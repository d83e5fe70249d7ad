// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/livews"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
)

// ServeList handles GET /groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list groups", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeStream handles GET /groups/stream.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	defer h.Metrics.StreamOpened("groups")()
	livews.Serve(w, r, h.Groups.StreamAll(r.Context()), "groups", h.Log)
}

// ServeMine handles GET /groups/mine: groups the caller administers.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Groups.ListByOwner(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list own groups", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeMineStream handles GET /groups/mine/stream.
func (h *Handler) ServeMineStream(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}
	defer h.Metrics.StreamOpened("groups_mine")()
	livews.Serve(w, r, h.Groups.StreamByOwner(r.Context(), uid), "groups", h.Log)
}

// ServeGet handles GET /groups/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "group")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "get group", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// ServeMembers handles GET /groups/{id}/members. Members are read from
// the user side of the relation.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "group")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Groups.GetByID(ctx, id); err != nil {
		h.storeError(w, r, "get group", err)
		return
	}
	members, err := h.Users.ListByGroup(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list group members", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, members)
}

// ServeMembersStream handles GET /groups/{id}/members/stream.
func (h *Handler) ServeMembersStream(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "group")
	if !ok {
		return
	}
	defer h.Metrics.StreamOpened("group_members")()
	livews.Serve(w, r, h.Groups.StreamMembers(r.Context(), id), "members", h.Log)
}
