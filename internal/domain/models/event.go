// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType distinguishes daily sessions from weekly outings.
type EventType string

const (
	EventDaily  EventType = "daily"
	EventWeekly EventType = "weekly"
)

// WeeklySubType refines a weekly event.
type WeeklySubType string

const (
	WeeklyLongRun      WeeklySubType = "long_run"
	WeeklySpecialEvent WeeklySubType = "special_event"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Location is an address label with an optional resolved coordinate.
type Location struct {
	Address string    `bson:"address" json:"address"`
	Point   *GeoPoint `bson:"point,omitempty" json:"point,omitempty"`
}

// Event is a scheduled club run.
//
// NOTE:
//   - A nil GroupID means the event is open to every group. Legacy documents
//     may also carry is_all_groups; readers treat GroupID as authoritative.
//   - Capacity <= 0 means unlimited.
type Event struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title         string              `bson:"title" json:"title"`
	Description   string              `bson:"description" json:"description"`
	Type          EventType           `bson:"type" json:"type"`
	WeeklySubType WeeklySubType       `bson:"weekly_sub_type,omitempty" json:"weekly_sub_type,omitempty"`
	GroupID       *primitive.ObjectID `bson:"group_id" json:"group_id"`
	Date          time.Time           `bson:"date" json:"date"`
	Time          string              `bson:"time" json:"time"` // HH:MM local
	Location      Location            `bson:"location" json:"location"`
	MeetingPoint  string              `bson:"meeting_point" json:"meeting_point"`
	DistanceKm    float64             `bson:"distance_km" json:"distance_km"`
	Capacity      int                 `bson:"max_participants" json:"max_participants"`

	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Waitlist     []primitive.ObjectID `bson:"waitlist" json:"waitlist"`

	IsCancelled bool `bson:"is_cancelled" json:"is_cancelled"`
	IsFeatured  bool `bson:"is_featured" json:"is_featured"`
	IsPinned    bool `bson:"is_pinned" json:"is_pinned"`

	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatorName string             `bson:"creator_name" json:"creator_name"`

	LegacyAllGroups bool `bson:"is_all_groups,omitempty" json:"-"`

	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	PublishedAt time.Time `bson:"published_at" json:"published_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// IsClubWide reports whether the event is open to every group.
func (e Event) IsClubWide() bool { return e.GroupID == nil }

// IsFull reports whether a capacity is set and reached.
func (e Event) IsFull() bool {
	return e.Capacity > 0 && len(e.Participants) >= e.Capacity
}

// HasParticipant reports whether id has joined.
func (e Event) HasParticipant(id primitive.ObjectID) bool {
	return containsID(e.Participants, id)
}

// IsWaitlisted reports whether id is on the waitlist.
func (e Event) IsWaitlisted(id primitive.ObjectID) bool {
	return containsID(e.Waitlist, id)
}

// StartsAt combines Date and Time in loc. A malformed Time falls back to midnight.
func (e Event) StartsAt(loc *time.Location) time.Time {
	d := e.Date.In(loc)
	t, err := time.Parse("15:04", e.Time)
	if err != nil {
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
