// internal/app/features/groups/write.go
package groups

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createInput struct {
	Name    string `json:"name" validate:"required,max=80" label:"Group name"`
	Level   string `json:"level" validate:"required,grouplevel" label:"Level"`
	AdminID string `json:"admin_id" validate:"omitempty,objectid" label:"Group admin"`
}

type updateInput struct {
	Name    *string `json:"name" validate:"omitempty,max=80" label:"Group name"`
	Level   *string `json:"level" validate:"omitempty,grouplevel" label:"Level"`
	AdminID *string `json:"admin_id" validate:"omitempty,objectid" label:"Group admin"`
}

// HandleCreate handles POST /groups. The caller administers the new
// group unless the main admin names someone else.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, _ := authz.UserCtx(r)

	var in createInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create group", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}
	adminID := uid
	if in.AdminID != "" {
		oid, _ := inputval.ParseObjectID(in.AdminID)
		if oid != uid && !authz.IsMainAdmin(r) {
			uierrors.RenderForbidden(w, r, "Only the main admin can assign another group admin.")
			return
		}
		adminID = oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.Create(ctx, in.Name, models.GroupLevel(strings.ToLower(in.Level)), adminID)
	if err != nil {
		h.storeError(w, r, "create group", err)
		return
	}
	h.AuditLog.GroupCreated(ctx, r, uid, g.ID, g.Name)
	uierrors.WriteJSON(w, http.StatusCreated, g)
}

// HandleUpdate handles PATCH /groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	var in updateInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode update group", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	var (
		level   *models.GroupLevel
		adminID *primitive.ObjectID
		fields  []string
	)
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if in.Level != nil {
		l := models.GroupLevel(strings.ToLower(*in.Level))
		level = &l
		fields = append(fields, "level")
	}
	if in.AdminID != nil {
		if !authz.IsMainAdmin(r) {
			uierrors.RenderForbidden(w, r, "Only the main admin can reassign a group.")
			return
		}
		oid, _ := inputval.ParseObjectID(*in.AdminID)
		adminID = &oid
		fields = append(fields, "admin_id")
	}
	if len(fields) == 0 {
		uierrors.WriteJSON(w, http.StatusOK, g)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	updated, err := h.Groups.Update(ctx, g.ID, in.Name, level, adminID)
	if err != nil {
		h.storeError(w, r, "update group", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.GroupUpdated(ctx, r, uid, g.ID, strings.Join(fields, ","))
	uierrors.WriteJSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /groups/{id}. Former members lose their
// group reference and the group's chat history is dropped.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	g, ok := h.load(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Groups.Delete(ctx, g.ID); err != nil {
		h.storeError(w, r, "delete group", err)
		return
	}
	if h.Chat != nil {
		if n, err := h.Chat.DeleteGroup(ctx, g.ID); err != nil {
			h.Log.Warn("group chat not purged", zap.String("group_id", g.ID.Hex()), zap.Error(err))
		} else if n > 0 {
			h.Log.Debug("group chat purged", zap.String("group_id", g.ID.Hex()), zap.Int64("messages", n))
		}
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.GroupDeleted(ctx, r, uid, g.ID, g.Name)
	w.WriteHeader(http.StatusNoContent)
}
