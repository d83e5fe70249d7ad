// internal/app/store/users/decode.go
package userstore

import (
	"strings"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// rawUser accepts both the current snake_case layout and the camelCase
// documents imported from the first version of the club app.
type rawUser struct {
	ID primitive.ObjectID `bson:"_id"`

	FullName       string `bson:"full_name"`
	LegacyFullName string `bson:"fullName"`
	LegacyName     string `bson:"name"`

	Email string `bson:"email"`
	Phone string `bson:"phone"`

	CIN       string `bson:"cin_last_digits"`
	LegacyCIN string `bson:"cinLastDigits"`

	Role bson.RawValue `bson:"role"`

	GroupID       bson.RawValue `bson:"assigned_group_id"`
	LegacyGroupID bson.RawValue `bson:"assignedGroupId"`

	IsActive       *bool `bson:"is_active"`
	LegacyIsActive *bool `bson:"isActive"`

	LastLogin       *time.Time `bson:"last_login"`
	LegacyLastLogin *time.Time `bson:"lastLogin"`

	CreatedAt       time.Time `bson:"created_at"`
	LegacyCreatedAt time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (r rawUser) toModel() models.User {
	u := models.User{
		ID:        r.ID,
		FullName:  firstNonEmpty(r.FullName, r.LegacyFullName, r.LegacyName),
		Email:     r.Email,
		Phone:     r.Phone,
		CINLast3:  firstNonEmpty(r.CIN, r.LegacyCIN),
		Role:      decodeRole(r.Role),
		IsActive:  true,
		LastLogin: r.LastLogin,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	u.FullNameCI = text.Fold(u.FullName)
	u.Permissions = authz.Derive(u.Role)

	switch {
	case r.IsActive != nil:
		u.IsActive = *r.IsActive
	case r.LegacyIsActive != nil:
		u.IsActive = *r.LegacyIsActive
	}
	if u.LastLogin == nil {
		u.LastLogin = r.LegacyLastLogin
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.LegacyCreatedAt
	}

	if r.GroupID.Type != 0 {
		u.AssignedGroupID = decodeGroupRef(r.GroupID)
	} else {
		u.AssignedGroupID = decodeGroupRef(r.LegacyGroupID)
	}
	return u
}

func decodeRole(v bson.RawValue) models.Role {
	if v.Type == 0 || v.Type == bsontype.Null {
		return models.RoleVisitor
	}
	if s, ok := v.StringValueOK(); ok {
		return normalize.Role(s)
	}
	return normalize.Role(v.String())
}

// decodeGroupRef reads an ObjectID or a hex string. Anything else
// (null, empty string, malformed) means no group.
func decodeGroupRef(v bson.RawValue) *primitive.ObjectID {
	if oid, ok := v.ObjectIDOK(); ok {
		return &oid
	}
	if s, ok := v.StringValueOK(); ok {
		if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s)); err == nil {
			return &oid
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
