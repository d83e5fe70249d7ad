// internal/app/features/groups/handler.go
package groups

import (
	"errors"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	chatstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/chat"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
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

// Handler is the shared dependency container for the groups feature.
// Membership is written through the group store, which keeps the member
// list and each user's group reference in step.
type Handler struct {
	Groups   *groupstore.Store
	Users    *userstore.Store
	Chat     *chatstore.Store
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(groups *groupstore.Store, users *userstore.Store, chat *chatstore.Store, audit *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:   groups,
		Users:    users,
		Chat:     chat,
		AuditLog: audit,
		Metrics:  m,
		ErrLog:   errLog,
		Log:      logger,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key, what string) (primitive.ObjectID, bool) {
	oid, ok := inputval.ParseObjectID(chi.URLParam(r, key))
	if !ok {
		uierrors.RenderBadRequest(w, r, "Invalid "+what+" id.")
	}
	return oid, ok
}

// owns reports whether the caller may change g: the main admin always,
// group admins only for groups they administer.
func owns(r *http.Request, g models.Group) bool {
	if authz.IsMainAdmin(r) {
		return true
	}
	_, _, uid, ok := authz.UserCtx(r)
	return ok && authz.Has(r, models.CanManageGroups) && g.AdminID == uid
}

// load fetches the {id} group and checks ownership, writing the error
// response itself when it returns false.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (models.Group, bool) {
	id, ok := pathID(w, r, "id", "group")
	if !ok {
		return models.Group{}, false
	}
	g, err := h.Groups.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "load group", err)
		return models.Group{}, false
	}
	if !owns(r, g) {
		uierrors.RenderForbidden(w, r, "You can only manage your own groups.")
		return models.Group{}, false
	}
	return g, true
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var pf *dualwrite.PartialFailure
	switch {
	case errors.Is(err, groupstore.ErrNotFound):
		uierrors.RenderNotFound(w, r, "Group not found.")
	case errors.Is(err, userstore.ErrNotFound):
		uierrors.RenderNotFound(w, r, "User not found.")
	case errors.Is(err, groupstore.ErrNameRequired),
		errors.Is(err, groupstore.ErrBadLevel),
		errors.Is(err, groupstore.ErrAdminRequired):
		uierrors.RenderBadRequest(w, r, err.Error())
	case errors.As(err, &pf):
		h.ErrLog.LogPartialFailure(w, r, op, err)
	default:
		h.ErrLog.LogServerError(w, r, op, err, "A database error occurred.")
	}
}
