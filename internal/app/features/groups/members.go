// internal/app/features/groups/members.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
)

type memberInput struct {
	UserID string `json:"user_id" validate:"required,objectid" label:"User"`
}

// HandleAddMember handles POST /groups/{id}/members. A user in another
// group is moved.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	var in memberInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode add member", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}
	userID, _ := inputval.ParseObjectID(in.UserID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Groups.AddMember(ctx, g.ID, userID); err != nil {
		h.storeError(w, r, "add group member", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.MemberAddedToGroup(ctx, r, uid, userID, g.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /groups/{id}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID", "user")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Groups.RemoveMember(ctx, g.ID, userID); err != nil {
		h.storeError(w, r, "remove group member", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.MemberRemovedFromGroup(ctx, r, uid, userID, g.ID)
	w.WriteHeader(http.StatusNoContent)
}
