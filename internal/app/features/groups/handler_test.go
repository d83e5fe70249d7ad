package groups_test

import (
	"net/http"
	"testing"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/features/groups"
	chatstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/chat"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	h      *groups.Handler
	groups *groupstore.Store
	users  *userstore.Store
	chat   *chatstore.Store
	fx     *testutil.Fixtures
}

func newTestHandler(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	hub := streams.NewHub(logger)
	users := userstore.New(db, credentialstore.New(db), hub, logger)
	gs := groupstore.New(db, users, hub, logger)
	chat := chatstore.New(db, hub, logger, 0, 0)
	return env{
		h:      groups.NewHandler(gs, users, chat, nil, nil, uierrors.NewErrorLogger(logger), logger),
		groups: gs,
		users:  users,
		chat:   chat,
		fx:     testutil.NewFixtures(t, db),
	}
}

// ownedBy creates a group administered by the given test user.
func (e env) ownedBy(t *testing.T, tu testutil.TestUser, name string) models.Group {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	oid, _ := primitive.ObjectIDFromHex(tu.ID)
	g, err := e.groups.Create(ctx, name, models.LevelBeginner, oid)
	if err != nil {
		t.Fatalf("Create group: %v", err)
	}
	return g
}

func TestHandleCreate_DefaultsAdminToCaller(t *testing.T) {
	e := newTestHandler(t)
	ga := testutil.GroupAdminUser(primitive.NilObjectID)

	rec := testutil.NewRecorder()
	e.h.HandleCreate(rec, testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/groups", map[string]string{
		"name":  "Morning Runners",
		"level": "Intermediate",
	}), ga))

	rec.AssertStatus(t, http.StatusCreated)
	var g models.Group
	rec.DecodeJSON(t, &g)
	if g.AdminID.Hex() != ga.ID || g.Level != models.LevelIntermediate {
		t.Errorf("group = %+v", g)
	}
}

func TestHandleCreate_Rejects(t *testing.T) {
	e := newTestHandler(t)

	cases := []struct {
		name string
		as   testutil.TestUser
		body map[string]string
		want int
	}{
		{"missing name", testutil.MainAdminUser(), map[string]string{"level": "beginner"}, http.StatusBadRequest},
		{"bad level", testutil.MainAdminUser(), map[string]string{"name": "X", "level": "elite"}, http.StatusBadRequest},
		{"foreign admin", testutil.GroupAdminUser(primitive.NilObjectID), map[string]string{
			"name": "X", "level": "beginner", "admin_id": primitive.NewObjectID().Hex(),
		}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.HandleCreate(rec, testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/groups", tc.body), tc.as))
			rec.AssertStatus(t, tc.want)
		})
	}
}

func TestHandleAddRemoveMember(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ga := testutil.GroupAdminUser(primitive.NilObjectID)
	g := e.ownedBy(t, ga, "Trail")
	u := e.fx.CreateUser(ctx, "Runner", "runner@club.tn", models.RoleMember, nil)

	req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/groups/"+g.ID.Hex()+"/members", map[string]string{
		"user_id": u.ID.Hex(),
	}), ga)
	rec := testutil.NewRecorder()
	e.h.HandleAddMember(rec, testutil.WithChiURLParam(req, "id", g.ID.Hex()))
	rec.AssertStatus(t, http.StatusNoContent)

	got, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AssignedGroupID == nil || *got.AssignedGroupID != g.ID {
		t.Fatalf("user group = %v, want %s", got.AssignedGroupID, g.ID.Hex())
	}

	req = testutil.NewAuthenticatedRequest(http.MethodDelete, "/groups/"+g.ID.Hex()+"/members/"+u.ID.Hex(), ga)
	req = testutil.WithChiURLParam(req, "id", g.ID.Hex())
	req = testutil.WithChiURLParam(req, "userID", u.ID.Hex())
	rec = testutil.NewRecorder()
	e.h.HandleRemoveMember(rec, req)
	rec.AssertStatus(t, http.StatusNoContent)

	grp, err := e.groups.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID group: %v", err)
	}
	if grp.HasMember(u.ID) {
		t.Error("member still listed after removal")
	}
}

func TestHandleAddMember_OtherAdminsGroup(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := e.ownedBy(t, testutil.GroupAdminUser(primitive.NilObjectID), "Theirs")
	u := e.fx.CreateUser(ctx, "Runner", "runner@club.tn", models.RoleMember, nil)

	req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/groups/"+g.ID.Hex()+"/members", map[string]string{
		"user_id": u.ID.Hex(),
	}), testutil.GroupAdminUser(primitive.NilObjectID))
	rec := testutil.NewRecorder()
	e.h.HandleAddMember(rec, testutil.WithChiURLParam(req, "id", g.ID.Hex()))
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestHandleDelete_ClearsMembersAndChat(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.MainAdminUser()
	g := e.ownedBy(t, admin, "Doomed")
	u := e.fx.CreateUser(ctx, "Runner", "runner@club.tn", models.RoleMember, nil)
	if err := e.groups.AddMember(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, _, err := e.chat.Send(ctx, g.ID, u.ID, u.FullName, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodDelete, "/groups/"+g.ID.Hex(), admin)
	rec := testutil.NewRecorder()
	e.h.HandleDelete(rec, testutil.WithChiURLParam(req, "id", g.ID.Hex()))
	rec.AssertStatus(t, http.StatusNoContent)

	got, err := e.users.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AssignedGroupID != nil {
		t.Errorf("member still points at deleted group")
	}
	msgs, err := e.chat.Recent(ctx, g.ID)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("chat kept %d messages", len(msgs))
	}
}

func TestServeMine(t *testing.T) {
	e := newTestHandler(t)
	ga := testutil.GroupAdminUser(primitive.NilObjectID)
	e.ownedBy(t, ga, "Mine A")
	e.ownedBy(t, ga, "Mine B")
	e.ownedBy(t, testutil.MainAdminUser(), "Not mine")

	rec := testutil.NewRecorder()
	e.h.ServeMine(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/mine", ga))
	rec.AssertStatus(t, http.StatusOK)

	var got []models.Group
	rec.DecodeJSON(t, &got)
	if len(got) != 2 {
		t.Errorf("mine = %d groups, want 2", len(got))
	}
}

func TestServeMembers_UnknownGroup(t *testing.T) {
	e := newTestHandler(t)
	id := primitive.NewObjectID().Hex()

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/groups/"+id+"/members", testutil.MainAdminUser())
	rec := testutil.NewRecorder()
	e.h.ServeMembers(rec, testutil.WithChiURLParam(req, "id", id))
	rec.AssertStatus(t, http.StatusNotFound)
}
