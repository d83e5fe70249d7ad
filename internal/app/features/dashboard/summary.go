// internal/app/features/dashboard/summary.go
package dashboard

import (
	"context"
	"time"

	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	metricsstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/metrics"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/sessionrouter"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/sourcegraph/conc/pool"
)

// Summary is the per-dashboard data. Only the parts the caller's
// dashboard shows are filled.
type Summary struct {
	Statistics *userstore.Statistics `json:"statistics,omitempty"`
	Counts     *metricsstore.Counts  `json:"counts,omitempty"`
	Groups     []models.Group        `json:"groups,omitempty"`
	Events     []models.Event        `json:"events"`
}

// summarize loads the dashboard parts concurrently. The first failing
// load cancels the rest.
func (h *Handler) summarize(ctx context.Context, dec sessionrouter.Decision) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var sum Summary
	p := pool.New().WithContext(ctx).WithCancelOnError()

	if dec.Permissions.ViewStatistics {
		p.Go(func(ctx context.Context) error {
			st, err := h.Users.ComputeStatistics(ctx)
			if err != nil {
				return err
			}
			sum.Statistics = &st
			return nil
		})
		p.Go(func(ctx context.Context) error {
			c := metricsstore.FetchDashboardCounts(ctx, h.DB, now)
			sum.Counts = &c
			return nil
		})
	}

	switch dec.Dashboard {
	case sessionrouter.DashboardGroupAdmin:
		p.Go(func(ctx context.Context) error {
			gs, err := h.Groups.ListByOwner(ctx, dec.User.ID)
			if err != nil {
				return err
			}
			sum.Groups = gs
			return nil
		})
	case sessionrouter.DashboardMember:
		if dec.User.AssignedGroupID == nil {
			break
		}
		gid := *dec.User.AssignedGroupID
		p.Go(func(ctx context.Context) error {
			evs, err := h.Events.List(ctx, eventstore.Filter{From: &today, GroupID: &gid, IncludeClubWide: true})
			if err != nil {
				return err
			}
			sum.Events = evs
			return nil
		})
	case sessionrouter.DashboardGuest:
		p.Go(func(ctx context.Context) error {
			evs, err := h.Events.List(ctx, eventstore.Filter{From: &today, ClubWideOnly: true})
			if err != nil {
				return err
			}
			sum.Events = evs
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return Summary{}, err
	}
	if sum.Events == nil {
		sum.Events = []models.Event{}
	}
	return sum, nil
}
