package dashboard_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/features/dashboard"
	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type body struct {
	Role      models.Role `json:"role"`
	Dashboard string      `json:"dashboard"`
	Summary   struct {
		Statistics *userstore.Statistics `json:"statistics"`
		Groups     []models.Group        `json:"groups"`
		Events     []models.Event        `json:"events"`
	} `json:"summary"`
}

func newTestHandler(t *testing.T) (*dashboard.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	hub := streams.NewHub(logger)
	users := userstore.New(db, credentialstore.New(db), hub, logger)
	groups := groupstore.New(db, users, hub, logger)
	events := eventstore.New(db, hub, logger)
	return dashboard.NewHandler(db, users, groups, events, uierrors.NewErrorLogger(logger), logger), testutil.NewFixtures(t, db)
}

func as(u models.User) testutil.TestUser {
	tu := testutil.TestUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
	if u.AssignedGroupID != nil {
		tu.GroupID = u.AssignedGroupID.Hex()
	}
	return tu
}

func TestServeDashboard_Guest(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	gid := primitive.NewObjectID()
	fx.CreateEvent(ctx, "Club run", tomorrow, nil, 0)
	fx.CreateEvent(ctx, "Group run", tomorrow, &gid, 0)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewRequest(http.MethodGet, "/dashboard"))

	rec.AssertStatus(t, http.StatusOK)
	var got body
	rec.DecodeJSON(t, &got)
	if got.Dashboard != "guest" || got.Role != models.RoleVisitor {
		t.Errorf("dashboard = %q role = %q", got.Dashboard, got.Role)
	}
	if len(got.Summary.Events) != 1 || got.Summary.Events[0].Title != "Club run" {
		t.Errorf("events = %+v", got.Summary.Events)
	}
	if got.Summary.Statistics != nil {
		t.Error("guest must not see statistics")
	}
}

func TestServeDashboard_MemberSeesOwnGroupAndClubWide(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, "Débutants", models.LevelBeginner)
	other := primitive.NewObjectID()
	member := fx.CreateUser(ctx, "Sami Trabelsi", "sami@club.tn", models.RoleMember, &g.ID)

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	fx.CreateEvent(ctx, "Club run", tomorrow, nil, 0)
	fx.CreateEvent(ctx, "Mine", tomorrow.Add(time.Hour), &g.ID, 0)
	fx.CreateEvent(ctx, "Theirs", tomorrow, &other, 0)
	fx.CreateEvent(ctx, "Past", time.Now().UTC().Add(-72*time.Hour), &g.ID, 0)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", as(member)))

	rec.AssertStatus(t, http.StatusOK)
	var got body
	rec.DecodeJSON(t, &got)
	if got.Dashboard != "member" {
		t.Errorf("dashboard = %q", got.Dashboard)
	}
	if len(got.Summary.Events) != 2 {
		t.Fatalf("events = %+v", got.Summary.Events)
	}
	for _, e := range got.Summary.Events {
		if e.Title == "Theirs" || e.Title == "Past" {
			t.Errorf("unexpected event %q", e.Title)
		}
	}
}

func TestServeDashboard_MainAdminGetsStatistics(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "Leila Main", "leila@club.tn", models.RoleMainAdmin, nil)
	fx.CreateUser(ctx, "Sami", "sami@club.tn", models.RoleMember, nil)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", as(admin)))

	rec.AssertStatus(t, http.StatusOK)
	var got body
	rec.DecodeJSON(t, &got)
	if got.Dashboard != "main_admin" {
		t.Errorf("dashboard = %q", got.Dashboard)
	}
	if got.Summary.Statistics == nil || got.Summary.Statistics.Total != 2 {
		t.Errorf("statistics = %+v", got.Summary.Statistics)
	}
}

func TestServeDashboard_GroupAdminGetsOwnedGroups(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "Walid", "walid@club.tn", models.RoleGroupAdmin, nil)
	if _, err := h.Groups.Create(ctx, "Avancés", models.LevelAdvanced, admin.ID); err != nil {
		t.Fatalf("Create group: %v", err)
	}
	fx.CreateGroup(ctx, "Not mine", models.LevelBeginner)

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", as(admin)))

	rec.AssertStatus(t, http.StatusOK)
	var got body
	rec.DecodeJSON(t, &got)
	if got.Dashboard != "group_admin" || len(got.Summary.Groups) != 1 || got.Summary.Groups[0].Name != "Avancés" {
		t.Errorf("got %+v", got)
	}
}

func TestServeDashboard_InactiveUser(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Gone", "gone@club.tn", models.RoleMember, nil)
	if err := h.Users.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	rec := testutil.NewRecorder()
	h.ServeDashboard(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/dashboard", as(u)))
	rec.AssertStatus(t, http.StatusForbidden)
}
