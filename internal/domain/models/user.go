// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a club directory record.
//
// NOTE:
//   - AssignedGroupID is the single group a user trains with. A nil value
//     means the user belongs to no group. The group's member_ids list is
//     kept in sync by the group store.
//   - Credentials live in the credentials collection, never here.
type User struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName        string              `bson:"full_name" json:"full_name"`
	FullNameCI      string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email           string              `bson:"email" json:"email"`
	Phone           string              `bson:"phone" json:"phone"`
	CINLast3        string              `bson:"cin_last_digits" json:"cin_last_digits"`
	Role            Role                `bson:"role" json:"role"`
	AssignedGroupID *primitive.ObjectID `bson:"assigned_group_id" json:"assigned_group_id"`
	IsActive        bool                `bson:"is_active" json:"is_active"`
	Permissions     Permissions         `bson:"permissions" json:"permissions"`
	LastLogin       *time.Time          `bson:"last_login,omitempty" json:"last_login,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InGroup reports whether the user is assigned to the given group.
func (u User) InGroup(id primitive.ObjectID) bool {
	return u.AssignedGroupID != nil && *u.AssignedGroupID == id
}
