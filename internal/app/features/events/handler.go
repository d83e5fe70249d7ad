// internal/app/features/events/handler.go
package events

import (
	"errors"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the club calendar.
type Handler struct {
	Events   *eventstore.Store
	Groups   *groupstore.Store
	Push     pushnotify.Publisher
	Topic    string
	Loc      *time.Location
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(events *eventstore.Store, groups *groupstore.Store, push pushnotify.Publisher, topic string, loc *time.Location, audit *auditlog.Logger, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if topic == "" {
		topic = pushnotify.DefaultTopic
	}
	return &Handler{
		Events:   events,
		Groups:   groups,
		Push:     push,
		Topic:    topic,
		Loc:      loc,
		AuditLog: audit,
		Metrics:  m,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// seesAll reports whether the caller sees every group's events.
func seesAll(r *http.Request) bool {
	return authz.IsAdmin(r)
}

// visible reports whether the caller may see e. Admins see everything,
// members their own group plus club-wide events, visitors club-wide only.
func visible(r *http.Request, e models.Event) bool {
	if seesAll(r) || e.IsClubWide() {
		return true
	}
	gid, ok := authz.UserGroupID(r)
	return ok && *e.GroupID == gid
}

// load fetches the {id} event, answering 404 for events the caller can't see.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (models.Event, bool) {
	id, ok := inputval.ParseObjectID(chi.URLParam(r, "id"))
	if !ok {
		uierrors.RenderBadRequest(w, r, "Invalid event id.")
		return models.Event{}, false
	}
	e, err := h.Events.GetByID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "load event", err)
		return models.Event{}, false
	}
	if !visible(r, e) {
		uierrors.RenderNotFound(w, r, "Event not found.")
		return models.Event{}, false
	}
	return e, true
}

// mayTarget reports whether the caller may schedule for groupID. Group
// admins are limited to groups they administer.
func (h *Handler) mayTarget(r *http.Request, groupID *primitive.ObjectID) (bool, error) {
	if groupID == nil || !authz.HasAnyRole(r, models.RoleGroupAdmin) {
		return true, nil
	}
	g, err := h.Groups.GetByID(r.Context(), *groupID)
	if err != nil {
		return false, err
	}
	_, _, uid, _ := authz.UserCtx(r)
	return g.AdminID == uid, nil
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, eventstore.ErrNotFound):
		uierrors.RenderNotFound(w, r, "Event not found.")
	case errors.Is(err, groupstore.ErrNotFound):
		uierrors.RenderBadRequest(w, r, "Group not found.")
	case errors.Is(err, eventstore.ErrEventCancelled):
		uierrors.RenderConflict(w, r, "This event has been cancelled.")
	case errors.Is(err, eventstore.ErrTitleRequired),
		errors.Is(err, eventstore.ErrBadType),
		errors.Is(err, eventstore.ErrGroupRequired),
		errors.Is(err, eventstore.ErrDateRequired),
		errors.Is(err, eventstore.ErrBadTime),
		errors.Is(err, eventstore.ErrBadCoordinates),
		errors.Is(err, eventstore.ErrBadCapacity),
		errors.Is(err, eventstore.ErrBadDistance),
		errors.Is(err, eventstore.ErrCapacityBelowParticipants):
		uierrors.RenderBadRequest(w, r, err.Error())
	default:
		h.ErrLog.LogServerError(w, r, op, err, "A database error occurred.")
	}
}
