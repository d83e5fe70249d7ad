package groupstore_test

import (
	"errors"
	"testing"
	"time"

	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T) (*mongo.Database, *groupstore.Store, *userstore.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	hub := streams.NewHub(zap.NewNop())
	users := userstore.New(db, credentialstore.NewWithCost(db, bcrypt.MinCost), hub, zap.NewNop())
	return db, groupstore.New(db, users, hub, zap.NewNop()), users
}

func TestStore_CreateValidates(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	admin := primitive.NewObjectID()

	g, err := store.Create(ctx, "  Lac   Runners ", "Intermédiaire", admin)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.Name != "Lac Runners" || g.Level != models.LevelIntermediate || len(g.MemberIDs) != 0 {
		t.Errorf("created = %+v", g)
	}

	if _, err := store.Create(ctx, "", models.LevelBeginner, admin); !errors.Is(err, groupstore.ErrNameRequired) {
		t.Errorf("empty name: %v", err)
	}
	if _, err := store.Create(ctx, "X", "elite", admin); !errors.Is(err, groupstore.ErrBadLevel) {
		t.Errorf("bad level: %v", err)
	}
	if _, err := store.Create(ctx, "X", models.LevelBeginner, primitive.NilObjectID); !errors.Is(err, groupstore.ErrAdminRequired) {
		t.Errorf("no admin: %v", err)
	}
}

func TestStore_ListByOwner(t *testing.T) {
	_, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	for _, c := range []struct {
		name  string
		admin primitive.ObjectID
	}{{"Zeta", a}, {"Alpha", a}, {"Other", b}} {
		if _, err := store.Create(ctx, c.name, models.LevelBeginner, c.admin); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := store.ListByOwner(ctx, a)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Alpha" || got[1].Name != "Zeta" {
		t.Errorf("ListByOwner = %+v", got)
	}
}

func TestStore_AddMemberMovesBetweenGroups(t *testing.T) {
	db, store, users := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	admin := primitive.NewObjectID()
	g1, _ := store.Create(ctx, "One", models.LevelBeginner, admin)
	g2, _ := store.Create(ctx, "Two", models.LevelAdvanced, admin)
	u := fx.CreateUser(ctx, "Runner", "r@club.tn", models.RoleMember, nil)

	if err := store.AddMember(ctx, g1.ID, u.ID); err != nil {
		t.Fatalf("AddMember g1: %v", err)
	}
	if err := store.AddMember(ctx, g2.ID, u.ID); err != nil {
		t.Fatalf("AddMember g2: %v", err)
	}

	got1, _ := store.GetByID(ctx, g1.ID)
	got2, _ := store.GetByID(ctx, g2.ID)
	if got1.HasMember(u.ID) || !got2.HasMember(u.ID) {
		t.Errorf("member lists: g1=%v g2=%v", got1.MemberIDs, got2.MemberIDs)
	}
	ru, _ := users.GetByID(ctx, u.ID)
	if !ru.InGroup(g2.ID) {
		t.Errorf("user group = %v", ru.AssignedGroupID)
	}

	if err := store.AddMember(ctx, primitive.NewObjectID(), u.ID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("unknown group: %v", err)
	}
}

func TestStore_RemoveMember(t *testing.T) {
	db, store, users := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	g, _ := store.Create(ctx, "One", models.LevelBeginner, primitive.NewObjectID())
	u := fx.CreateUser(ctx, "Runner", "r@club.tn", models.RoleMember, nil)
	if err := store.AddMember(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := store.RemoveMember(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	got, _ := store.GetByID(ctx, g.ID)
	ru, _ := users.GetByID(ctx, u.ID)
	if got.HasMember(u.ID) || ru.AssignedGroupID != nil {
		t.Errorf("after remove: members=%v ref=%v", got.MemberIDs, ru.AssignedGroupID)
	}
}

func TestStore_DeleteCascadesToDriftedMembers(t *testing.T) {
	db, store, users := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	g, _ := store.Create(ctx, "Doomed", models.LevelBeginner, primitive.NewObjectID())
	other, _ := store.Create(ctx, "Other", models.LevelBeginner, primitive.NewObjectID())

	listed := fx.CreateUser(ctx, "Listed", "l@club.tn", models.RoleMember, nil)
	if err := store.AddMember(ctx, g.ID, listed.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	// referenced by the user only, not in member_ids
	refOnly := fx.CreateUser(ctx, "RefOnly", "ro@club.tn", models.RoleMember, &g.ID)
	// in member_ids but already moved elsewhere
	moved := fx.CreateUser(ctx, "Moved", "m@club.tn", models.RoleMember, &other.ID)
	if _, err := db.Collection("groups").UpdateByID(ctx, g.ID, bson.M{"$addToSet": bson.M{"member_ids": moved.ID}}); err != nil {
		t.Fatalf("seed drift: %v", err)
	}

	if err := store.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, g.ID); !errors.Is(err, groupstore.ErrNotFound) {
		t.Errorf("group still exists: %v", err)
	}
	for _, id := range []primitive.ObjectID{listed.ID, refOnly.ID} {
		u, _ := users.GetByID(ctx, id)
		if u.AssignedGroupID != nil {
			t.Errorf("%s still references deleted group", u.FullName)
		}
	}
	m, _ := users.GetByID(ctx, moved.ID)
	if !m.InGroup(other.ID) {
		t.Errorf("moved user lost their other group: %v", m.AssignedGroupID)
	}
}

func TestStore_StreamMembers(t *testing.T) {
	db, store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	g, _ := store.Create(ctx, "Live", models.LevelBeginner, primitive.NewObjectID())
	u := fx.CreateUser(ctx, "Runner", "r@club.tn", models.RoleMember, nil)

	sub := store.StreamMembers(ctx, g.ID)
	defer sub.Close()
	if first := <-sub.C(); len(first) != 0 {
		t.Fatalf("initial members = %d", len(first))
	}

	if err := store.AddMember(ctx, g.ID, u.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-sub.C():
			if len(snap) == 1 && snap[0].ID == u.ID {
				return
			}
		case <-deadline:
			t.Fatal("member never appeared in stream")
		}
	}
}

func TestStore_OwnerStreamFollowsGroupLifecycle(t *testing.T) {
	db, store, users := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	adminX := primitive.NewObjectID()
	userY := fx.CreateUser(ctx, "Runner Y", "y@club.tn", models.RoleMember, nil)

	sub := store.StreamByOwner(ctx, adminX)
	defer sub.Close()

	waitFor := func(what string, ok func([]models.Group) bool) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case snap, open := <-sub.C():
				if !open {
					t.Fatalf("stream closed waiting for %s", what)
				}
				if ok(snap) {
					return
				}
			case <-deadline:
				t.Fatalf("stream never showed %s", what)
			}
		}
	}
	waitFor("the empty start", func(gs []models.Group) bool { return len(gs) == 0 })

	alpha, err := store.Create(ctx, "Alpha", models.LevelBeginner, adminX)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "Not mine", models.LevelBeginner, primitive.NewObjectID()); err != nil {
		t.Fatalf("Create other: %v", err)
	}
	if err := store.AddMember(ctx, alpha.ID, userY.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	waitFor("Alpha with userY", func(gs []models.Group) bool {
		return len(gs) == 1 && gs[0].ID == alpha.ID &&
			len(gs[0].MemberIDs) == 1 && gs[0].MemberIDs[0] == userY.ID
	})

	if err := store.Delete(ctx, alpha.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor("Alpha gone", func(gs []models.Group) bool { return len(gs) == 0 })

	y, err := users.GetByID(ctx, userY.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if y.AssignedGroupID != nil {
		t.Errorf("userY still assigned to %v", *y.AssignedGroupID)
	}
}
