package bootstrap

import (
	"testing"

	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newUserStore(t *testing.T) *userstore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := testLogger()
	return userstore.New(db, credentialstore.NewWithCost(db, bcrypt.MinCost), streams.NewHub(logger), logger)
}

func TestEnsureMainAdmin_CreatesNew(t *testing.T) {
	users := newUserStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureMainAdmin(ctx, users, "admin@club.tn", "Club Admin", "123", testLogger()); err != nil {
		t.Fatalf("ensureMainAdmin failed: %v", err)
	}

	u, err := users.GetByEmail(ctx, "admin@club.tn")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.Role != models.RoleMainAdmin {
		t.Errorf("expected role main_admin, got %q", u.Role)
	}
	if !u.IsActive {
		t.Error("expected main admin to be active")
	}
	if !u.Permissions.Has(models.CanManageAdmins) {
		t.Error("expected main admin to hold manage_admins")
	}
}

func TestEnsureMainAdmin_NeedsSecretToCreate(t *testing.T) {
	users := newUserStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := ensureMainAdmin(ctx, users, "admin@club.tn", "Club Admin", "", testLogger()); err == nil {
		t.Fatal("expected an error without cin digits")
	}
}

func TestEnsureMainAdmin_PromotesAndEnablesExisting(t *testing.T) {
	users := newUserStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, err := users.Create(ctx, userstore.NewUser{
		FullName: "Existing Coach", Email: "coach@club.tn", CINLast3: "456", Role: models.RoleCoachAdmin,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := users.SetActive(ctx, existing.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	if err := ensureMainAdmin(ctx, users, "Coach@Club.tn", "ignored", "", testLogger()); err != nil {
		t.Fatalf("ensureMainAdmin failed: %v", err)
	}

	u, err := users.GetByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Role != models.RoleMainAdmin || !u.IsActive {
		t.Errorf("after promotion = role %q, active %v", u.Role, u.IsActive)
	}
	if u.FullName != "Existing Coach" {
		t.Errorf("name changed to %q", u.FullName)
	}
}

func TestEnsureMainAdmin_AlreadyMainAdmin(t *testing.T) {
	users := newUserStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	existing, err := users.Create(ctx, userstore.NewUser{
		FullName: "Club Admin", Email: "admin@club.tn", CINLast3: "789", Role: models.RoleMainAdmin,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ensureMainAdmin(ctx, users, "admin@club.tn", "Other", "000", testLogger()); err != nil {
		t.Fatalf("ensureMainAdmin failed: %v", err)
	}
	all, err := users.List(ctx, userstore.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].ID != existing.ID {
		t.Errorf("expected the single existing admin, got %d users", len(all))
	}
}
