// internal/app/features/events/list.go
package events

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/livews"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

const dateLayout = "2006-01-02"

// filter builds the store filter from ?from, ?to and ?group, narrowed to
// what the caller may see. Only admins choose a group; everyone else is
// pinned to their own.
func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (eventstore.Filter, bool) {
	var f eventstore.Filter
	for _, p := range []struct {
		key string
		dst **time.Time
		end bool
	}{{"from", &f.From, false}, {"to", &f.To, true}} {
		raw := query.Get(r, p.key)
		if raw == "" {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, raw, h.Loc)
		if err != nil {
			uierrors.RenderBadRequest(w, r, "Dates must look like 2026-03-14.")
			return f, false
		}
		if p.end {
			d = d.Add(24*time.Hour - time.Millisecond)
		}
		*p.dst = &d
	}

	if seesAll(r) {
		if raw := query.Get(r, "group"); raw != "" {
			gid, ok := inputval.ParseObjectID(raw)
			if !ok {
				uierrors.RenderBadRequest(w, r, "Invalid group id.")
				return f, false
			}
			f.GroupID = &gid
			f.IncludeClubWide = query.Get(r, "club_wide") != "false"
		}
		return f, true
	}
	if gid, ok := authz.UserGroupID(r); ok {
		f.GroupID = &gid
		f.IncludeClubWide = true
	} else {
		f.ClubWideOnly = true
	}
	return f, true
}

// ServeList handles GET /events.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Events.List(ctx, f)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}

// ServeStream handles GET /events/stream with the same filters as ServeList.
func (h *Handler) ServeStream(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	defer h.Metrics.StreamOpened("events")()
	livews.Serve(w, r, h.Events.StreamFiltered(r.Context(), f), "events", h.Log)
}

// ServeGet handles GET /events/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	e, ok := h.load(w, r)
	if !ok {
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, e)
}

// ServeHistory handles GET /events/history: runs the caller joined that
// have already taken place.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		uierrors.RenderUnauthorized(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Events.History(ctx, uid, time.Now(), 50)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "event history", err, "A database error occurred.")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, list)
}
