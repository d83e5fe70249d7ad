// internal/app/features/users/handler.go
package users

import (
	"errors"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/dualwrite"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, audit *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		AuditLog: audit,
		Metrics:  m,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// userID reads the {id} path parameter, writing 400 when it is malformed.
func userID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, ok := inputval.ParseObjectID(chi.URLParam(r, "id"))
	if !ok {
		uierrors.RenderBadRequest(w, r, "Invalid user id.")
	}
	return oid, ok
}

// mayTouch reports whether the caller can act on an account with role.
// Admin accounts are reserved to holders of manage_admins.
func mayTouch(r *http.Request, role models.Role) bool {
	return !role.IsAdmin() || authz.Has(r, models.CanManageAdmins)
}

// storeError maps user store errors to responses.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var pf *dualwrite.PartialFailure
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		uierrors.RenderNotFound(w, r, "User not found.")
	case errors.Is(err, userstore.ErrDuplicateEmail):
		uierrors.RenderConflict(w, r, "A user with this email already exists.")
	case errors.Is(err, userstore.ErrBadRole),
		errors.Is(err, userstore.ErrNameRequired),
		errors.Is(err, userstore.ErrEmailRequired),
		errors.Is(err, userstore.ErrSecretNeeded):
		uierrors.RenderBadRequest(w, r, err.Error())
	case errors.As(err, &pf):
		h.ErrLog.LogPartialFailure(w, r, op, err)
	default:
		h.ErrLog.LogServerError(w, r, op, err, "A database error occurred.")
	}
}
