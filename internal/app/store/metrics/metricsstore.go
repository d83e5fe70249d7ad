// internal/app/store/metrics/metricsstore.go
package metricsstore

import (
	"context"
	"time"

	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of totals shown on the admin dashboards.
type Counts struct {
	Members        int64 `json:"members"`
	Admins         int64 `json:"admins"`
	Groups         int64 `json:"groups"`
	UpcomingEvents int64 `json:"upcoming_events"`
	MessagesToday  int64 `json:"messages_today"`
	ActiveWeek     int64 `json:"active_week"`
}

// FetchDashboardCounts returns the high-level counts used by dashboards.
// Intentionally tolerant: on error it returns 0 for that counter.
// Roles are matched on their canonical stored value.
func FetchDashboardCounts(ctx context.Context, db *mongo.Database, now time.Time) Counts {
	var out Counts
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// members
	if n, err := db.Collection("users").CountDocuments(ctx, bson.M{"role": models.RoleMember}); err == nil {
		out.Members = n
	}

	// admins of every level
	adminFilter := bson.M{"role": bson.M{"$in": []models.Role{
		models.RoleGroupAdmin, models.RoleCoachAdmin, models.RoleMainAdmin,
	}}}
	if n, err := db.Collection("users").CountDocuments(ctx, adminFilter); err == nil {
		out.Admins = n
	}

	// groups
	if n, err := db.Collection("groups").CountDocuments(ctx, bson.M{}); err == nil {
		out.Groups = n
	}

	// upcoming events, today included
	eventFilter := bson.M{"date": bson.M{"$gte": today}, "is_cancelled": bson.M{"$ne": true}}
	if n, err := db.Collection("events").CountDocuments(ctx, eventFilter); err == nil {
		out.UpcomingEvents = n
	}

	// chat messages since midnight UTC
	if n, err := db.Collection("chat_messages").CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": today}}); err == nil {
		out.MessagesToday = n
	}

	// distinct users signed in over the last seven days
	if n, err := loginstore.New(db).ActiveUsersSince(ctx, now.AddDate(0, 0, -7)); err == nil {
		out.ActiveWeek = int64(n)
	}

	return out
}
