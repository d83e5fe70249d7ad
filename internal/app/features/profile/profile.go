// internal/app/features/profile/profile.go
package profile

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
)

type updateInput struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=120" label:"Full name"`
	Phone    *string `json:"phone" validate:"omitempty,max=30" label:"Phone"`
}

type passwordInput struct {
	Current string `json:"current_password" validate:"required" label:"Current password"`
	New     string `json:"new_password" validate:"required,min=6,max=128" label:"New password"`
	Confirm string `json:"confirm_password" validate:"required,eqfield=New" label:"Password confirmation"`
}

// ServeProfile returns the signed-in user's own record.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, userstore.ErrNotFound) {
		uierrors.RenderNotFound(w, r, "User not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, user)
}

// HandleUpdate lets a user change their own name and phone. Email and
// role stay admin-managed.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}

	var in updateInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode profile update", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	upd := userstore.Update{FullName: in.FullName, Phone: in.Phone}
	if upd.Empty() {
		h.ServeProfile(w, r)
		return
	}
	user, err := h.Users.Update(ctx, uid, upd)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		uierrors.RenderNotFound(w, r, "User not found.")
		return
	case errors.Is(err, userstore.ErrNameRequired):
		uierrors.RenderBadRequest(w, r, err.Error())
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "update profile", err, "Failed to save your profile.")
		return
	}
	h.AuditLog.UserUpdated(ctx, r, uid, uid, "profile")
	uierrors.WriteJSON(w, http.StatusOK, user)
}

// HandleChangePassword replaces the caller's secret after checking the
// current one.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}

	var in passwordInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode password change", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}
	if in.New == in.Current {
		uierrors.RenderBadRequest(w, r, "New password cannot be the same as your current password.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load profile", err, "Failed to update password.")
		return
	}
	if _, err := h.Creds.Verify(ctx, user.Email, in.Current); err != nil {
		if errors.Is(err, credentialstore.ErrWrongCredential) || errors.Is(err, credentialstore.ErrNotFound) {
			uierrors.RenderBadRequest(w, r, "Current password is incorrect.")
			return
		}
		h.ErrLog.LogServerError(w, r, "verify password", err, "Failed to update password.")
		return
	}
	if err := h.Creds.SetSecret(ctx, uid, in.New); err != nil {
		h.ErrLog.LogServerError(w, r, "set password", err, "Failed to update password.")
		return
	}
	h.AuditLog.UserUpdated(ctx, r, uid, uid, "password")
	w.WriteHeader(http.StatusNoContent)
}

const recentLogins = 20

type loginItem struct {
	At     time.Time `json:"at"`
	Method string    `json:"method"`
	Label  string    `json:"label"`
	IP     string    `json:"ip,omitempty"`
}

// ServeLogins lists the signed-in user's latest sign-ins, newest first.
func (h *Handler) ServeLogins(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	recs, err := h.Logins.Recent(ctx, uid, recentLogins)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load login history", err, "A database error occurred.")
		return
	}

	items := make([]loginItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, loginItem{At: rec.CreatedAt, Method: rec.Method, Label: methodLabel(rec.Method), IP: rec.IP})
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"logins": items})
}

func methodLabel(method string) string {
	for _, m := range models.AllLoginMethods {
		if m.Value == method {
			return m.Label
		}
	}
	return method
}
