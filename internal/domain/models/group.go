// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupLevel is the running level of a training group.
type GroupLevel string

const (
	LevelBeginner     GroupLevel = "beginner"
	LevelIntermediate GroupLevel = "intermediate"
	LevelAdvanced     GroupLevel = "advanced"
)

// AllGroupLevels lists the levels in ascending order.
var AllGroupLevels = []GroupLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}

// IsValid reports whether l is a known level.
func (l GroupLevel) IsValid() bool {
	return l == LevelBeginner || l == LevelIntermediate || l == LevelAdvanced
}

// Group is a running group owned by one admin.
//
// NOTE:
//   - MemberIDs mirrors users.assigned_group_id. Both sides are written by
//     the group store; neither is edited directly by handlers.
type Group struct {
	ID        primitive.ObjectID   `bson:"_id" json:"id"`
	Name      string               `bson:"name" json:"name"`
	NameCI    string               `bson:"name_ci" json:"-"`
	Level     GroupLevel           `bson:"level" json:"level"`
	AdminID   primitive.ObjectID   `bson:"admin_id" json:"admin_id"`
	MemberIDs []primitive.ObjectID `bson:"member_ids" json:"member_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether id is in the member list.
func (g Group) HasMember(id primitive.ObjectID) bool {
	for _, m := range g.MemberIDs {
		if m == id {
			return true
		}
	}
	return false
}
