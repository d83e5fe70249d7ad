package indexes_test

import (
	"testing"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/indexes"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string][]string{
		"users":         {"uniq_users_email", "idx_users_fullnameci_id", "idx_users_group_fullnameci"},
		"credentials":   {"uniq_credentials_email"},
		"groups":        {"idx_groups_members"},
		"events":        {"idx_events_date_id", "idx_events_participants_date"},
		"chat_messages": {"idx_chat_group_createdat_id"},
		"login_records": {"idx_login_user_createdat"},
		"audit_events":  {"idx_audit_createdat"},
	}
	for coll, names := range want {
		got := indexNames(t, db, coll)
		for _, n := range names {
			if !got[n] {
				t.Errorf("%s: missing index %q", coll, n)
			}
		}
	}
}

func TestEnsureAll_UniqueCredentialEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	c := db.Collection("credentials")
	if _, err := c.InsertOne(ctx, bson.M{"email": "a@b.tn"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := c.InsertOne(ctx, bson.M{"email": "a@b.tn"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}
}
