// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/paging"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServeList handles GET /audit.
//
// Query parameters: category, type, user, actor, start_date and end_date
// (YYYY-MM-DD, UTC) and page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	eventType := strings.TrimSpace(q.Get("type"))

	if category != "" && eventTypesForCategory(category) == nil {
		uierrors.RenderBadRequest(w, r, "Unknown category.")
		return
	}

	page := paging.ParsePage(r)
	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     paging.PageSize,
		Offset:    paging.Offset(page),
	}
	for key, dst := range map[string]**primitive.ObjectID{"user": &filter.UserID, "actor": &filter.ActorID} {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		oid, ok := inputval.ParseObjectID(raw)
		if !ok {
			uierrors.RenderBadRequest(w, r, "Invalid "+key+" id.")
			return
		}
		*dst = &oid
	}
	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.StartTime = &t
		}
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			endOfDay := t.Add(24*time.Hour - time.Nanosecond)
			filter.EndTime = &endOfDay
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "query audit events", err, "A database error occurred.")
		return
	}
	total, err := h.Audit.Count(ctx, filter)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count audit events", err, "A database error occurred.")
		return
	}

	names := h.resolveNames(ctx, events)
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:            e.ID.Hex(),
			CreatedAt:     e.CreatedAt,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID = e.UserID.Hex()
			item.TargetName = names[*e.UserID]
		}
		if e.GroupID != nil {
			item.GroupID = e.GroupID.Hex()
		}
		items = append(items, item)
	}

	uierrors.WriteJSON(w, http.StatusOK, listPage{
		Items:  items,
		Result: paging.Compute(page, total),
	})
}

// ServeTypes handles GET /audit/types, listing the filterable categories.
func (h *Handler) ServeTypes(w http.ResponseWriter, r *http.Request) {
	uierrors.WriteJSON(w, http.StatusOK, allCategories())
}

// resolveNames looks up the full names of every actor and target on the
// page. Users that no longer exist are left out; lookups that fail only
// log a warning.
func (h *Handler) resolveNames(ctx context.Context, events []audit.Event) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string)
	if h.Users == nil {
		return names
	}
	seen := make(map[primitive.ObjectID]bool)
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id == nil || seen[*id] {
				continue
			}
			seen[*id] = true
			u, err := h.Users.GetByID(ctx, *id)
			if err != nil {
				if ctx.Err() != nil {
					return names
				}
				h.Log.Debug("audit name lookup", zap.String("user_id", id.Hex()), zap.Error(err))
				continue
			}
			names[*id] = u.FullName
		}
	}
	return names
}
