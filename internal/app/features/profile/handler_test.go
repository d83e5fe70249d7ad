package profile_test

import (
	"net/http"
	"testing"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/features/profile"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	h     *profile.Handler
	creds  *credentialstore.Store
	logins *loginstore.Store
	user  models.User
	as    testutil.TestUser
}

func newTestHandler(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	creds := credentialstore.NewWithCost(db, bcrypt.MinCost)
	users := userstore.New(db, creds, streams.NewHub(logger), logger)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	u, err := users.Create(ctx, userstore.NewUser{FullName: "Yasmine Gharbi", Email: "yasmine@club.tn", CINLast3: "321"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	as := testutil.TestUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
	logins := loginstore.New(db)
	return env{h: profile.NewHandler(users, creds, logins, nil, uierrors.NewErrorLogger(logger), logger), creds: creds, logins: logins, user: u, as: as}
}

func TestServeProfile(t *testing.T) {
	e := newTestHandler(t)

	t.Run("signed out", func(t *testing.T) {
		rec := testutil.NewRecorder()
		e.h.ServeProfile(rec, testutil.NewRequest(http.MethodGet, "/profile"))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("signed in", func(t *testing.T) {
		rec := testutil.NewRecorder()
		e.h.ServeProfile(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/profile", e.as))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, "yasmine@club.tn")
	})
}

func TestHandleUpdate(t *testing.T) {
	e := newTestHandler(t)

	req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPatch, "/profile", map[string]string{
		"full_name": "  Yasmine   Ben Gharbi ",
		"phone":     "+216 98 123 456",
	}), e.as)
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var got models.User
	rec.DecodeJSON(t, &got)
	if got.FullName != "Yasmine Ben Gharbi" {
		t.Errorf("FullName = %q", got.FullName)
	}
	if got.Email != e.user.Email || got.Role != e.user.Role {
		t.Errorf("profile update touched admin-managed fields: %+v", got)
	}
}

func TestHandleUpdate_RejectsUnknownField(t *testing.T) {
	e := newTestHandler(t)

	req := testutil.WithUser(testutil.NewJSONRequest(http.MethodPatch, "/profile", map[string]string{
		"role": "main_admin",
	}), e.as)
	rec := testutil.NewRecorder()
	e.h.HandleUpdate(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleChangePassword(t *testing.T) {
	e := newTestHandler(t)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong current", map[string]string{"current_password": "nope", "new_password": "secret99", "confirm_password": "secret99"}, http.StatusBadRequest},
		{"mismatch", map[string]string{"current_password": "000321", "new_password": "secret99", "confirm_password": "secret98"}, http.StatusBadRequest},
		{"too short", map[string]string{"current_password": "000321", "new_password": "abc", "confirm_password": "abc"}, http.StatusBadRequest},
		{"same", map[string]string{"current_password": "000321", "new_password": "000321", "confirm_password": "000321"}, http.StatusBadRequest},
		{"ok", map[string]string{"current_password": "000321", "new_password": "secret99", "confirm_password": "secret99"}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.HandleChangePassword(rec, testutil.WithUser(testutil.NewJSONRequest(http.MethodPost, "/profile/password", tc.body), e.as))
			rec.AssertStatus(t, tc.want)
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := e.creds.Verify(ctx, e.user.Email, "secret99"); err != nil {
		t.Errorf("new password not accepted: %v", err)
	}
}

func TestServeLogins(t *testing.T) {
	e := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	for _, rec := range []models.LoginRecord{
		{UserID: e.user.ID, Method: models.LoginPIN, IP: "197.2.2.2", CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: e.user.ID, Method: models.LoginGoogle, CreatedAt: now.Add(-time.Hour)},
		{UserID: primitive.NewObjectID(), Method: models.LoginPassword, CreatedAt: now},
	} {
		if err := e.logins.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	t.Run("signed out", func(t *testing.T) {
		rec := testutil.NewRecorder()
		e.h.ServeLogins(rec, testutil.NewRequest(http.MethodGet, "/profile/logins"))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("own history only", func(t *testing.T) {
		rec := testutil.NewRecorder()
		e.h.ServeLogins(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/profile/logins", e.as))
		rec.AssertStatus(t, http.StatusOK)

		var body struct {
			Logins []struct {
				Method string `json:"method"`
				Label  string `json:"label"`
				IP     string `json:"ip"`
			} `json:"logins"`
		}
		rec.DecodeJSON(t, &body)
		if len(body.Logins) != 2 {
			t.Fatalf("got %d logins, want 2", len(body.Logins))
		}
		if body.Logins[0].Method != models.LoginGoogle || body.Logins[0].Label != "Google" {
			t.Errorf("newest = %+v", body.Logins[0])
		}
		if body.Logins[1].IP != "197.2.2.2" {
			t.Errorf("oldest = %+v", body.Logins[1])
		}
	})
}
