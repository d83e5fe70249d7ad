// internal/app/features/events/participation.go
package events

import (
	"context"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleJoin handles POST /events/{id}/join. A full run puts the caller
// on the waitlist.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	status, err := h.Events.Join(ctx, e.ID, uid)
	if err != nil {
		h.storeError(w, r, "join event", err)
		return
	}
	h.Metrics.Join(string(status))
	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// HandleLeave handles POST /events/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	promoted, err := h.Events.Leave(ctx, e.ID, uid)
	if err != nil {
		h.storeError(w, r, "leave event", err)
		return
	}
	out := map[string]string{"status": "left"}
	if promoted != nil {
		out["promoted"] = promoted.Hex()
		h.Log.Info("waitlisted runner promoted",
			zap.String("event_id", e.ID.Hex()), zap.String("user_id", promoted.Hex()))
	}
	uierrors.WriteJSON(w, http.StatusOK, out)
}
