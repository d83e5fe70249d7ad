// internal/app/features/chat/handler.go
package chat

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	chatstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/chat"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/livews"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Chat    *chatstore.Store
	Metrics *metrics.Metrics
	ErrLog  *uierrors.ErrorLogger
	Log     *zap.Logger
}

func NewHandler(chat *chatstore.Store, m *metrics.Metrics, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Chat: chat, Metrics: m, ErrLog: errLog, Log: logger}
}

// room reads {groupID} and checks the caller may talk there: admins in any
// group, everyone else only in their own.
func room(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	gid, ok := inputval.ParseObjectID(chi.URLParam(r, "groupID"))
	if !ok {
		uierrors.RenderBadRequest(w, r, "Invalid group id.")
		return primitive.NilObjectID, false
	}
	if authz.IsAdmin(r) {
		return gid, true
	}
	own, ok := authz.UserGroupID(r)
	if !ok || own != gid {
		uierrors.RenderForbidden(w, r, "You can only chat in your own group.")
		return primitive.NilObjectID, false
	}
	return gid, true
}

// ServeHistory handles GET /chat/{groupID}.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	gid, ok := room(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	msgs, err := h.Chat.Recent(ctx, gid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load chat", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, msgs)
}

// ServeStream handles GET /chat/{groupID}/stream.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	gid, ok := room(w, r)
	if !ok {
		return
	}
	defer h.Metrics.StreamOpened("chat")()
	livews.Serve(w, r, h.Chat.Subscribe(r.Context(), gid), "chat", h.Log)
}

type sendInput struct {
	Text string `json:"text"`
}

// HandleSend handles POST /chat/{groupID}. Text that is empty once tags and
// whitespace are removed is dropped and answered with 204.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	gid, ok := room(w, r)
	if !ok {
		return
	}
	var in sendInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode chat message", err, "Invalid request body.")
		return
	}
	_, name, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msg, sent, err := h.Chat.Send(ctx, gid, uid, name, in.Text)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "send chat message", err, "Your message could not be sent.")
		return
	}
	if !sent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, msg)
}
