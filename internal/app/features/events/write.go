// internal/app/features/events/write.go
package events

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

type eventInput struct {
	Title           string   `json:"title" validate:"required,max=120" label:"Title"`
	Description     string   `json:"description" validate:"max=4000" label:"Description"`
	Type            string   `json:"type" validate:"required,eventtype" label:"Type"`
	WeeklySubType   string   `json:"weekly_sub_type" validate:"max=40" label:"Weekly type"`
	GroupID         string   `json:"group_id" validate:"omitempty,objectid" label:"Group"`
	Date            string   `json:"date" validate:"required,datetime=2006-01-02" label:"Date"`
	Time            string   `json:"time" validate:"required,hhmm" label:"Time"`
	Address         string   `json:"address" validate:"max=300" label:"Address"`
	Lat             *float64 `json:"lat" validate:"omitempty,min=-90,max=90" label:"Latitude"`
	Lng             *float64 `json:"lng" validate:"omitempty,min=-180,max=180" label:"Longitude"`
	MeetingPoint    string   `json:"meeting_point" validate:"max=200" label:"Meeting point"`
	DistanceKm      float64  `json:"distance_km" validate:"min=0" label:"Distance"`
	MaxParticipants int      `json:"max_participants" validate:"min=0" label:"Max participants"`
	IsFeatured      bool     `json:"is_featured"`
	IsPinned        bool     `json:"is_pinned"`
}

func (in eventInput) toModel(loc *time.Location) models.Event {
	date, _ := time.ParseInLocation(dateLayout, in.Date, loc)
	e := models.Event{
		Title:         in.Title,
		Description:   in.Description,
		Type:          models.EventType(in.Type),
		WeeklySubType: models.WeeklySubType(in.WeeklySubType),
		Date:          date,
		Time:          in.Time,
		Location:      models.Location{Address: in.Address},
		MeetingPoint:  in.MeetingPoint,
		DistanceKm:    in.DistanceKm,
		Capacity:      in.MaxParticipants,
		IsFeatured:    in.IsFeatured,
		IsPinned:      in.IsPinned,
	}
	if in.Lat != nil && in.Lng != nil {
		e.Location.Point = &models.GeoPoint{Lat: *in.Lat, Lng: *in.Lng}
	}
	if gid, ok := inputval.ParseObjectID(in.GroupID); ok {
		e.GroupID = &gid
	}
	return e
}

// decode reads and validates the body, then checks the group target.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (models.Event, bool) {
	var in eventInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode event", err, "Invalid request body.")
		return models.Event{}, false
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return models.Event{}, false
	}
	e := in.toModel(h.Loc)
	ok, err := h.mayTarget(r, e.GroupID)
	if err != nil {
		h.storeError(w, r, "check event group", err)
		return models.Event{}, false
	}
	if !ok {
		uierrors.RenderForbidden(w, r, "You can only schedule runs for your own groups.")
		return models.Event{}, false
	}
	return e, true
}

// HandleCreate handles POST /events and announces the new run.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	_, name, uid, _ := authz.UserCtx(r)
	e.CreatedBy = uid
	e.CreatorName = name

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Events.Create(ctx, e)
	if err != nil {
		h.storeError(w, r, "create event", err)
		return
	}
	h.AuditLog.Run(ctx, r, audit.EventRunCreated, uid, created.ID, created.GroupID, created.Title)

	if h.Push != nil {
		err := h.Push.Publish(ctx, pushnotify.NewEvent(created, h.Topic, h.Loc))
		h.Metrics.Push("new_event", err)
		if err != nil {
			h.Log.Warn("new event push failed", zap.String("event_id", created.ID.Hex()), zap.Error(err))
		}
	}
	uierrors.WriteJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /events/{id}. Participants are kept.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r)
	if !ok {
		return
	}
	if ok, err := h.mayTarget(r, cur.GroupID); err != nil || !ok {
		uierrors.RenderForbidden(w, r, "You can only edit runs of your own groups.")
		return
	}
	e, ok := h.decode(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	updated, err := h.Events.Update(ctx, cur.ID, e)
	if err != nil {
		h.storeError(w, r, "update event", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.Run(ctx, r, audit.EventRunUpdated, uid, updated.ID, updated.GroupID, updated.Title)
	uierrors.WriteJSON(w, http.StatusOK, updated)
}

type cancelInput struct {
	Cancelled *bool `json:"cancelled"`
}

// HandleCancel handles POST /events/{id}/cancel. {"cancelled": false}
// restores a cancelled run.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r)
	if !ok {
		return
	}
	if ok, err := h.mayTarget(r, cur.GroupID); err != nil || !ok {
		uierrors.RenderForbidden(w, r, "You can only cancel runs of your own groups.")
		return
	}
	in := cancelInput{}
	if r.ContentLength > 0 {
		if err := uierrors.DecodeJSON(r, &in); err != nil {
			h.ErrLog.LogBadRequest(w, r, "decode cancel", err, "Invalid request body.")
			return
		}
	}
	cancelled := in.Cancelled == nil || *in.Cancelled

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Events.SetCancelled(ctx, cur.ID, cancelled); err != nil {
		h.storeError(w, r, "cancel event", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	if cancelled {
		h.AuditLog.Run(ctx, r, audit.EventRunCancelled, uid, cur.ID, cur.GroupID, cur.Title)
	} else {
		h.AuditLog.Run(ctx, r, audit.EventRunUpdated, uid, cur.ID, cur.GroupID, cur.Title)
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]bool{"is_cancelled": cancelled})
}

// HandleDelete handles DELETE /events/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	cur, ok := h.load(w, r)
	if !ok {
		return
	}
	if ok, err := h.mayTarget(r, cur.GroupID); err != nil || !ok {
		uierrors.RenderForbidden(w, r, "You can only delete runs of your own groups.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Events.Delete(ctx, cur.ID); err != nil {
		h.storeError(w, r, "delete event", err)
		return
	}
	_, _, uid, _ := authz.UserCtx(r)
	h.AuditLog.Run(ctx, r, audit.EventRunDeleted, uid, cur.ID, cur.GroupID, cur.Title)
	w.WriteHeader(http.StatusNoContent)
}
