// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/prefs"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/devicecookie"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/livews"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/notify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the unread badge, the desktop permission state and the
// push test action. Badge state is per device, not per user.
type Handler struct {
	Gateway *notify.Gateway
	Prefs   *prefs.Store
	Push    pushnotify.Publisher
	Topic   string
	Metrics *metrics.Metrics
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(gw *notify.Gateway, p *prefs.Store, push pushnotify.Publisher, topic string, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if topic == "" {
		topic = pushnotify.DefaultTopic
	}
	return &Handler{Gateway: gw, Prefs: p, Push: push, Topic: topic, Metrics: m, ErrLog: errLog, Log: logger}
}

func device(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := devicecookie.ID(r.Context())
	if id == "" {
		uierrors.RenderBadRequest(w, r, "This browser has no device id; enable cookies.")
		return "", false
	}
	return id, true
}

// chatGroup picks the chat whose messages count toward the badge: the
// ?group the caller is viewing when they may see it, else their own.
func chatGroup(r *http.Request) *primitive.ObjectID {
	own, hasOwn := authz.UserGroupID(r)
	if raw := query.Get(r, "group"); raw != "" {
		if gid, ok := inputval.ParseObjectID(raw); ok && (authz.IsAdmin(r) || (hasOwn && gid == own)) {
			return &gid
		}
	}
	if hasOwn {
		return &own
	}
	return nil
}

// ServeStream handles GET /notifications/stream.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	var self *primitive.ObjectID
	if _, _, uid, ok := authz.UserCtx(r); ok {
		self = &uid
	}
	defer h.Metrics.StreamOpened("notifications")()
	livews.Serve(w, r, h.Gateway.Subscribe(r.Context(), dev, chatGroup(r), self), "notifications", h.Log)
}

// HandleRead handles POST /notifications/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	at, err := h.Gateway.MarkAsRead(ctx, dev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "mark notifications read", err, "Could not update notifications.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]time.Time{"read_at": at})
}

type permissionBody struct {
	Permission string `json:"permission" validate:"required,oneof=default granted denied" label:"Permission"`
}

// ServePermission handles GET /notifications/permission.
func (h *Handler) ServePermission(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Prefs.NotificationPermission(ctx, dev)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load notification permission", err, "Could not load notification settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, permissionBody{Permission: string(p)})
}

// HandlePermission handles POST /notifications/permission with the state
// the browser reported after asking the user.
func (h *Handler) HandlePermission(w http.ResponseWriter, r *http.Request) {
	dev, ok := device(w, r)
	if !ok {
		return
	}
	var in permissionBody
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode notification permission", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Prefs.SetNotificationPermission(ctx, dev, models.NotificationPermission(in.Permission)); err != nil {
		h.ErrLog.LogServerError(w, r, "save notification permission", err, "Could not save notification settings.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, in)
}

type testBody struct {
	Title string `json:"title" validate:"max=120" label:"Title"`
	Body  string `json:"body" validate:"max=500" label:"Body"`
}

// HandleTest handles POST /notifications/test: a push to the club topic.
func (h *Handler) HandleTest(w http.ResponseWriter, r *http.Request) {
	var in testBody
	if r.ContentLength > 0 {
		if err := uierrors.DecodeJSON(r, &in); err != nil {
			h.ErrLog.LogBadRequest(w, r, "decode test push", err, "Invalid request body.")
			return
		}
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msg := pushnotify.Test(in.Title, in.Body, h.Topic, time.Now())
	err := h.Push.Publish(ctx, msg)
	h.Metrics.Push("test", err)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "publish test push", err, "The test notification could not be sent.")
		return
	}
	uierrors.WriteJSON(w, http.StatusAccepted, msg)
}
