package auditlog_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/features/auditlog"
	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type page struct {
	Items []struct {
		EventType  string `json:"event_type"`
		ActorName  string `json:"actor_name"`
		TargetName string `json:"target_name"`
	} `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newTestHandler(t *testing.T) (*auditlog.Handler, *audit.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	store := audit.New(db)
	users := userstore.New(db, credentialstore.New(db), streams.NewHub(logger), logger)
	return auditlog.NewHandler(store, users, uierrors.NewErrorLogger(logger), logger), store, db
}

func logEvents(t *testing.T, store *audit.Store, events ...audit.Event) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
}

func TestServeList_FiltersAndResolvesNames(t *testing.T) {
	h, store, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	admin := fx.CreateUser(ctx, "Nadia Ben Salah", "nadia@club.tn", models.RoleMainAdmin, nil)
	member := fx.CreateUser(ctx, "Youssef Gharbi", "youssef@club.tn", models.RoleMember, nil)

	logEvents(t, store,
		audit.Event{Category: audit.CategoryAdmin, EventType: audit.EventUserCreated, ActorID: &admin.ID, UserID: &member.ID, Success: true},
		audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &member.ID, Success: true},
		audit.Event{Category: audit.CategoryEvents, EventType: audit.EventRunCreated, ActorID: &admin.ID, Success: true},
	)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/audit?category=admin", testutil.MainAdminUser())
	rec := testutil.NewRecorder()
	h.ServeList(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got page
	rec.DecodeJSON(t, &got)
	if got.Total != 1 || len(got.Items) != 1 {
		t.Fatalf("admin category = %+v", got)
	}
	item := got.Items[0]
	if item.EventType != audit.EventUserCreated || item.ActorName != "Nadia Ben Salah" || item.TargetName != "Youssef Gharbi" {
		t.Errorf("item = %+v", item)
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/audit?user="+member.ID.Hex(), testutil.MainAdminUser())
	rec = testutil.NewRecorder()
	h.ServeList(rec, req)
	rec.AssertStatus(t, http.StatusOK)
	got = page{}
	rec.DecodeJSON(t, &got)
	if got.Total != 2 {
		t.Errorf("by user total = %d, want 2", got.Total)
	}

	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/audit?type="+audit.EventRunCreated+"&actor="+admin.ID.Hex(), testutil.MainAdminUser())
	rec = testutil.NewRecorder()
	h.ServeList(rec, req)
	got = page{}
	rec.DecodeJSON(t, &got)
	if got.Total != 1 || got.Items[0].EventType != audit.EventRunCreated {
		t.Errorf("by type and actor = %+v", got)
	}
}

func TestServeList_DateRangeAndPaging(t *testing.T) {
	h, store, _ := newTestHandler(t)

	old := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var events []audit.Event
	for i := 0; i < 55; i++ {
		events = append(events, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, Success: true})
	}
	events = append(events, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventLogout, CreatedAt: old})
	logEvents(t, store, events...)

	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/audit", testutil.MainAdminUser()))
	var got page
	rec.DecodeJSON(t, &got)
	if got.Total != 56 || len(got.Items) != 50 || got.TotalPages != 2 || !got.HasNext {
		t.Errorf("first page = total %d, items %d, pages %d", got.Total, len(got.Items), got.TotalPages)
	}

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/audit?page=2", testutil.MainAdminUser()))
	got = page{}
	rec.DecodeJSON(t, &got)
	if len(got.Items) != 6 || got.HasNext {
		t.Errorf("second page = %d items, has_next %v", len(got.Items), got.HasNext)
	}

	rec = testutil.NewRecorder()
	h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/audit?start_date=2025-03-01&end_date=2025-03-01", testutil.MainAdminUser()))
	got = page{}
	rec.DecodeJSON(t, &got)
	if got.Total != 1 {
		t.Errorf("date range total = %d, want 1", got.Total)
	}
}

func TestServeList_BadInput(t *testing.T) {
	h, _, _ := newTestHandler(t)

	for _, target := range []string{"/audit?category=billing", "/audit?user=nope", "/audit?actor=123"} {
		rec := testutil.NewRecorder()
		h.ServeList(rec, testutil.NewAuthenticatedRequest(http.MethodGet, target, testutil.MainAdminUser()))
		rec.AssertStatus(t, http.StatusBadRequest)
	}
}

func TestServeTypes(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.ServeTypes(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/audit/types", testutil.MainAdminUser()))
	rec.AssertStatus(t, http.StatusOK)

	var got []struct {
		Value  string   `json:"value"`
		Events []string `json:"events"`
	}
	rec.DecodeJSON(t, &got)
	if len(got) != 3 {
		t.Fatalf("categories = %d, want 3", len(got))
	}
	if got[2].Value != audit.CategoryEvents || len(got[2].Events) != 4 {
		t.Errorf("events category = %+v", got[2])
	}
}

func TestRoutes_MainAdminOnly(t *testing.T) {
	h, _, _ := newTestHandler(t)
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only-32b", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	router := auditlog.Routes(h, sm)

	cases := []struct {
		name string
		user *testutil.TestUser
		want int
	}{
		{"signed out", nil, http.StatusUnauthorized},
		{"coach admin", ptr(testutil.CoachUser()), http.StatusForbidden},
		{"member", ptr(testutil.MemberUser(primitive.NilObjectID)), http.StatusForbidden},
		{"main admin", ptr(testutil.MainAdminUser()), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewRequest(http.MethodGet, "/")
			req.Header.Set("Accept", "application/json")
			if tc.user != nil {
				req = testutil.WithUser(req, *tc.user)
			}
			rec := testutil.NewRecorder()
			router.ServeHTTP(rec, req)
			rec.AssertStatus(t, tc.want)
		})
	}
}

func ptr[T any](v T) *T { return &v }
