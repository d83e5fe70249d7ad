package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active directory user. groupID may be nil.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string, role models.Role, groupID *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:              primitive.NewObjectID(),
		FullName:        fullName,
		FullNameCI:      text.Fold(fullName),
		Email:           email,
		CINLast3:        "123",
		Role:            role,
		AssignedGroupID: groupID,
		IsActive:        true,
		Permissions:     models.Permissions{ViewHistory: true},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup inserts a running group with no members.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, level models.GroupLevel) models.Group {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Level:     level,
		MemberIDs: []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateEvent inserts a daily event on date. groupID nil makes it club-wide.
func (f *Fixtures) CreateEvent(ctx context.Context, title string, date time.Time, groupID *primitive.ObjectID, capacity int) models.Event {
	f.t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	ev := models.Event{
		ID:           primitive.NewObjectID(),
		Title:        title,
		Type:         models.EventDaily,
		GroupID:      groupID,
		Date:         date.UTC().Truncate(time.Millisecond),
		Time:         "07:00",
		Location:     models.Location{Address: "Lac 1, Tunis"},
		Capacity:     capacity,
		Participants: []primitive.ObjectID{},
		Waitlist:     []primitive.ObjectID{},
		CreatedAt:    now,
		PublishedAt:  now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, ev); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return ev
}
