package userstore

import (
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func decodeDoc(t *testing.T, doc bson.M) models.User {
	t.Helper()
	b, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw rawUser
	if err := bson.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return raw.toModel()
}

func TestDecode_LegacyDocument(t *testing.T) {
	gid := primitive.NewObjectID()
	created := time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC)

	u := decodeDoc(t, bson.M{
		"_id":             primitive.NewObjectID(),
		"fullName":        "Yasmine Trabelsi",
		"email":           "yasmine@club.tn",
		"cinLastDigits":   "481",
		"role":            "UserRole.groupAdmin",
		"assignedGroupId": gid.Hex(),
		"createdAt":       created,
		"permissions":     bson.M{"manage_users": true},
	})

	if u.FullName != "Yasmine Trabelsi" || u.FullNameCI != text.Fold("Yasmine Trabelsi") {
		t.Errorf("name = %q / %q", u.FullName, u.FullNameCI)
	}
	if u.Role != models.RoleGroupAdmin {
		t.Errorf("role = %q", u.Role)
	}
	if u.AssignedGroupID == nil || *u.AssignedGroupID != gid {
		t.Errorf("group = %v", u.AssignedGroupID)
	}
	if !u.IsActive {
		t.Error("missing active flag must default to true")
	}
	if u.CINLast3 != "481" || !u.CreatedAt.Equal(created) {
		t.Errorf("cin/created = %q / %v", u.CINLast3, u.CreatedAt)
	}
	// stored permissions are ignored; the role decides
	if u.Permissions.ManageUsers || !u.Permissions.ManageGroups {
		t.Errorf("permissions not derived from role: %+v", u.Permissions)
	}
}

func TestDecode_CanonicalWins(t *testing.T) {
	u := decodeDoc(t, bson.M{
		"_id":               primitive.NewObjectID(),
		"full_name":         "Sami",
		"name":              "Old Name",
		"role":              nil,
		"assigned_group_id": nil,
		"assignedGroupId":   primitive.NewObjectID().Hex(),
		"is_active":         false,
		"isActive":          true,
	})
	if u.FullName != "Sami" {
		t.Errorf("name = %q", u.FullName)
	}
	if u.Role != models.RoleVisitor {
		t.Errorf("nil role must decode as visitor, got %q", u.Role)
	}
	if u.AssignedGroupID != nil {
		t.Error("explicit null group must win over the legacy field")
	}
	if u.IsActive {
		t.Error("is_active must win over isActive")
	}
}

func TestDecode_BadGroupRef(t *testing.T) {
	u := decodeDoc(t, bson.M{"_id": primitive.NewObjectID(), "assignedGroupId": "not-an-id", "role": 3})
	if u.AssignedGroupID != nil {
		t.Errorf("group = %v", u.AssignedGroupID)
	}
	if u.Role != models.RoleVisitor {
		t.Errorf("numeric role = %q", u.Role)
	}
}
