// internal/app/features/users/write.go
package users

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

type createInput struct {
	FullName string `json:"full_name" validate:"required,max=120" label:"Full name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Phone    string `json:"phone" validate:"max=30" label:"Phone"`
	CINLast3 string `json:"cin_last_digits" validate:"omitempty,pin" label:"Last 3 digits of the national id"`
	Role     string `json:"role" validate:"omitempty,max=40" label:"Role"`
	Password string `json:"password" validate:"omitempty,min=6,max=128" label:"Password"`
}

type updateInput struct {
	FullName *string `json:"full_name" validate:"omitempty,max=120" label:"Full name"`
	Email    *string `json:"email" validate:"omitempty,email" label:"Email"`
	Phone    *string `json:"phone" validate:"omitempty,max=30" label:"Phone"`
	CINLast3 *string `json:"cin_last_digits" validate:"omitempty,pin" label:"Last 3 digits of the national id"`
	Role     *string `json:"role" validate:"omitempty,max=40" label:"Role"`
}

// HandleCreate handles POST /users. Without a password the account gets
// the legacy PIN-derived secret.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode create user", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}
	role := models.RoleMember
	if strings.TrimSpace(in.Role) != "" {
		role = normalize.Role(in.Role)
	}
	if !mayTouch(r, role) {
		uierrors.RenderForbidden(w, r, "Only the main admin can create admin accounts.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.Create(ctx, userstore.NewUser{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		CINLast3: in.CINLast3,
		Role:     role,
		Secret:   in.Password,
	})
	if err != nil {
		h.storeError(w, r, "create user", err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	h.AuditLog.UserCreated(ctx, r, actor, u.ID, string(u.Role))
	uierrors.WriteJSON(w, http.StatusCreated, u)
}

// HandleUpdate handles PATCH /users/{id}. Absent fields are kept.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in updateInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode update user", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "load user", err)
		return
	}
	if !mayTouch(r, cur.Role) {
		uierrors.RenderForbidden(w, r, "Only the main admin can edit admin accounts.")
		return
	}

	upd := userstore.Update{
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		CINLast3: in.CINLast3,
	}
	var changed []string
	if in.Role != nil {
		role := normalize.Role(*in.Role)
		if role != cur.Role {
			if !authz.Has(r, models.CanManagePermissions) || !mayTouch(r, role) {
				uierrors.RenderForbidden(w, r, "You can't change this user's role.")
				return
			}
			upd.Role = &role
		}
	}
	if upd.Empty() {
		uierrors.WriteJSON(w, http.StatusOK, cur)
		return
	}
	for name, set := range map[string]bool{
		"full_name": in.FullName != nil, "email": in.Email != nil, "phone": in.Phone != nil, "cin_last_digits": in.CINLast3 != nil,
	} {
		if set {
			changed = append(changed, name)
		}
	}

	u, err := h.Users.Update(ctx, id, upd)
	if err != nil {
		h.storeError(w, r, "update user", err)
		return
	}

	_, _, actor, _ := authz.UserCtx(r)
	if upd.Role != nil {
		h.AuditLog.UserRoleChanged(ctx, r, actor, id, string(cur.Role), string(u.Role))
	}
	if len(changed) > 0 {
		h.AuditLog.UserUpdated(ctx, r, actor, id, strings.Join(changed, ","))
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleSetActive returns the handler for POST /users/{id}/enable and
// /users/{id}/disable.
func (h *Handler) HandleSetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userID(w, r)
		if !ok {
			return
		}
		_, _, actor, _ := authz.UserCtx(r)
		if id == actor && !active {
			uierrors.RenderBadRequest(w, r, "You can't disable your own account.")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		defer cancel()

		cur, err := h.Users.GetByID(ctx, id)
		if err != nil {
			h.storeError(w, r, "load user", err)
			return
		}
		if !mayTouch(r, cur.Role) {
			uierrors.RenderForbidden(w, r, "Only the main admin can change admin accounts.")
			return
		}
		if err := h.Users.SetActive(ctx, id, active); err != nil {
			h.storeError(w, r, "set user active", err)
			return
		}
		h.AuditLog.UserUpdated(ctx, r, actor, id, "is_active")
		uierrors.WriteJSON(w, http.StatusOK, map[string]bool{"is_active": active})
	}
}

// HandleDelete handles DELETE /users/{id}. The user is also removed from
// their group's member list.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	_, _, actor, _ := authz.UserCtx(r)
	if id == actor {
		uierrors.RenderBadRequest(w, r, "You can't delete your own account.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "load user", err)
		return
	}
	if !mayTouch(r, cur.Role) {
		uierrors.RenderForbidden(w, r, "Only the main admin can delete admin accounts.")
		return
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		h.storeError(w, r, "delete user", err)
		return
	}
	h.AuditLog.UserDeleted(ctx, r, actor, id)
	w.WriteHeader(http.StatusNoContent)
}
