// internal/app/store/events/eventstore.go
package eventstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/htmlsanitize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("event not found")
	ErrEventCancelled = errors.New("event is cancelled")

	ErrCapacityBelowParticipants = errors.New("max participants is below the number already joined")
)

type Store struct {
	c   *mongo.Collection
	hub *streams.Hub
	log *zap.Logger
}

func New(db *mongo.Database, hub *streams.Hub, logger *zap.Logger) *Store {
	return &Store{c: db.Collection("events"), hub: hub, log: logger}
}

// normalizeEvent applies the read-side rules: legacy type strings map to
// the current enums, is_all_groups means no group, nil lists become empty.
func normalizeEvent(e *models.Event) {
	e.Type = normalize.EventType(string(e.Type))
	e.WeeklySubType = normalize.WeeklySubType(string(e.WeeklySubType))
	if e.Type != models.EventWeekly {
		e.WeeklySubType = ""
	}
	if e.LegacyAllGroups {
		e.GroupID = nil
		e.LegacyAllGroups = false
	}
	if e.Participants == nil {
		e.Participants = []primitive.ObjectID{}
	}
	if e.Waitlist == nil {
		e.Waitlist = []primitive.ObjectID{}
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Event, error) {
	var e models.Event
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, err
	}
	normalizeEvent(&e)
	return e, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Event, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Event{}
	for cur.Next(ctx) {
		var e models.Event
		if err := cur.Decode(&e); err != nil {
			s.log.Warn("skipping undecodable event", zap.Error(err))
			continue
		}
		normalizeEvent(&e)
		out = append(out, e)
	}
	return out, cur.Err()
}

/*─────────────────────────────────────────────────────────────────────────────*
| Filtered listing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// Filter selects events. From and To bound the date (inclusive) and are
// applied by the query. GroupID is matched after retrieval so the query
// only needs the date index. IncludeClubWide also keeps events with no
// group when GroupID is set.
type Filter struct {
	From            *time.Time
	To              *time.Time
	GroupID         *primitive.ObjectID
	IncludeClubWide bool
	ClubWideOnly    bool // visitors only see events open to every group
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if f.From != nil || f.To != nil {
		d := bson.M{}
		if f.From != nil {
			d["$gte"] = f.From.UTC()
		}
		if f.To != nil {
			d["$lte"] = f.To.UTC()
		}
		q["date"] = d
	}
	return q
}

func (f Filter) keep(e models.Event) bool {
	if f.ClubWideOnly {
		return e.GroupID == nil
	}
	if f.GroupID == nil {
		return true
	}
	if e.GroupID == nil {
		return f.IncludeClubWide
	}
	return *e.GroupID == *f.GroupID
}

// List returns events matching f in ascending date order.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	all, err := s.find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, e := range all {
		if f.keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// StreamFiltered delivers List(f) now and after every event change.
func (s *Store) StreamFiltered(ctx context.Context, f Filter) *streams.Subscription[[]models.Event] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.Event, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.List(ctx, f)
	}, s.log, streams.KeyEvents)
}

// ListStartingBetween returns non-cancelled events whose start (date plus
// HH:MM in loc) falls in [from, to].
func (s *Store) ListStartingBetween(ctx context.Context, from, to time.Time, loc *time.Location) ([]models.Event, error) {
	// dates are stored per calendar day; widen by a day on each side and
	// compare exact start times after decoding
	q := bson.M{
		"date":         bson.M{"$gte": from.Add(-24 * time.Hour).UTC(), "$lte": to.Add(24 * time.Hour).UTC()},
		"is_cancelled": bson.M{"$ne": true},
	}
	all, err := s.find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []models.Event{}
	for _, e := range all {
		start := e.StartsAt(loc)
		if !start.Before(from) && !start.After(to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt(loc).Before(out[j].StartsAt(loc)) })
	return out, nil
}

// ListCreatedAfter returns events created strictly after t, oldest first.
func (s *Store) ListCreatedAfter(ctx context.Context, t time.Time) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"created_at": bson.M{"$gt": t.UTC()}}, opts)
}

// History returns the events a user joined that are dated before now,
// newest first.
func (s *Store) History(ctx context.Context, userID primitive.ObjectID, now time.Time, limit int64) ([]models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}}).SetLimit(limit)
	return s.find(ctx, bson.M{"participants": userID, "date": bson.M{"$lt": now.UTC()}}, opts)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Writes                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func prepare(e *models.Event) {
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(htmlsanitize.StripTags(e.Description))
	e.Type = normalize.EventType(string(e.Type))
	e.WeeklySubType = normalize.WeeklySubType(string(e.WeeklySubType))
	if e.Type != models.EventWeekly {
		e.WeeklySubType = ""
	}
	e.Time = strings.TrimSpace(e.Time)
	e.Date = e.Date.UTC().Truncate(time.Millisecond)
	e.Location.Address = strings.TrimSpace(e.Location.Address)
	e.MeetingPoint = strings.TrimSpace(e.MeetingPoint)
	e.LegacyAllGroups = false
}

// Create validates and inserts an event with empty participant lists.
func (s *Store) Create(ctx context.Context, e models.Event) (models.Event, error) {
	prepare(&e)
	if err := Validate(e); err != nil {
		return models.Event{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	e.ID = primitive.NewObjectID()
	e.Participants = []primitive.ObjectID{}
	e.Waitlist = []primitive.ObjectID{}
	e.IsCancelled = false
	e.CreatedAt = now
	e.PublishedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Event{}, err
	}
	s.hub.Notify(streams.KeyEvents)
	return e, nil
}

// Update replaces the editable fields of an event. Participants, waitlist
// and creator are kept. Concurrent edits are last-write-wins. A capacity
// below the current participant count is refused in the same update that
// writes it.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, e models.Event) (models.Event, error) {
	prepare(&e)
	if err := Validate(e); err != nil {
		return models.Event{}, err
	}
	filter := bson.M{"_id": id}
	if e.Capacity > 0 {
		filter["$expr"] = bson.M{"$lte": bson.A{
			bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
			e.Capacity,
		}}
	}
	set := bson.M{
		"title":            e.Title,
		"description":      e.Description,
		"type":             e.Type,
		"weekly_sub_type":  e.WeeklySubType,
		"group_id":         e.GroupID,
		"date":             e.Date,
		"time":             e.Time,
		"location":         e.Location,
		"meeting_point":    e.MeetingPoint,
		"distance_km":      e.DistanceKm,
		"max_participants": e.Capacity,
		"is_featured":      e.IsFeatured,
		"is_pinned":        e.IsPinned,
		"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
	}
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set, "$unset": bson.M{"is_all_groups": ""}})
	if err != nil {
		return models.Event{}, err
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return models.Event{}, err
		}
		return models.Event{}, ErrCapacityBelowParticipants
	}
	s.hub.Notify(streams.KeyEvents)
	return s.GetByID(ctx, id)
}

// SetCancelled marks an event cancelled or restores it.
func (s *Store) SetCancelled(ctx context.Context, id primitive.ObjectID, cancelled bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_cancelled": cancelled, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.hub.Notify(streams.KeyEvents)
	return nil
}

// Delete removes an event.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	s.hub.Notify(streams.KeyEvents)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Participation                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// JoinStatus is the outcome of Join.
type JoinStatus string

const (
	Joined        JoinStatus = "joined"
	Waitlisted    JoinStatus = "waitlisted"
	AlreadyJoined JoinStatus = "already_joined"
)

// hasRoom matches events with unlimited capacity or a free seat.
var hasRoom = bson.A{
	bson.M{"max_participants": bson.M{"$lte": 0}},
	bson.M{"$expr": bson.M{"$lt": bson.A{
		bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
		"$max_participants",
	}}},
}

// Join adds the user to the participants if a seat is free, otherwise to
// the waitlist. The seat check and the insert are one conditional update.
func (s *Store) Join(ctx context.Context, eventID, userID primitive.ObjectID) (JoinStatus, error) {
	e, err := s.GetByID(ctx, eventID)
	if err != nil {
		return "", err
	}
	if e.IsCancelled {
		return "", ErrEventCancelled
	}
	if e.HasParticipant(userID) {
		return AlreadyJoined, nil
	}

	res, err := s.c.UpdateOne(ctx, bson.M{
		"_id":          eventID,
		"participants": bson.M{"$ne": userID},
		"is_cancelled": bson.M{"$ne": true},
		"$or":          hasRoom,
	}, bson.M{
		"$addToSet": bson.M{"participants": userID},
		"$pull":     bson.M{"waitlist": userID},
	})
	if err != nil {
		return "", err
	}
	if res.ModifiedCount > 0 {
		s.hub.Notify(streams.KeyEvents)
		return Joined, nil
	}

	// full, or joined concurrently
	res, err = s.c.UpdateOne(ctx, bson.M{
		"_id":          eventID,
		"participants": bson.M{"$ne": userID},
	}, bson.M{"$addToSet": bson.M{"waitlist": userID}})
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return AlreadyJoined, nil
	}
	s.hub.Notify(streams.KeyEvents)
	return Waitlisted, nil
}

// Leave removes the user from the participants and the waitlist. When a
// seat opens, the first waitlisted user is promoted and returned.
func (s *Store) Leave(ctx context.Context, eventID, userID primitive.ObjectID) (*primitive.ObjectID, error) {
	res, err := s.c.UpdateByID(ctx, eventID, bson.M{"$pull": bson.M{"participants": userID, "waitlist": userID}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	defer s.hub.Notify(streams.KeyEvents)

	e, err := s.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.IsCancelled || len(e.Waitlist) == 0 || e.IsFull() {
		return nil, nil
	}

	next := e.Waitlist[0]
	res, err = s.c.UpdateOne(ctx, bson.M{
		"_id":      eventID,
		"waitlist": next,
		"$or":      hasRoom,
	}, bson.M{
		"$pull":     bson.M{"waitlist": next},
		"$addToSet": bson.M{"participants": next},
	})
	if err != nil {
		return nil, err
	}
	if res.ModifiedCount == 0 {
		return nil, nil
	}
	return &next, nil
}

// Count returns the number of events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
