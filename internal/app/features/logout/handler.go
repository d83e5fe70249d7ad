// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles POST /logout. The cookie is expired even when the
// current one no longer decodes.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	h.AuditLog.Logout(r.Context(), r, userID)

	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}
