// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/dualwrite"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("group not found")
	ErrNameRequired  = errors.New("group name is required")
	ErrBadLevel      = errors.New("level must be beginner, intermediate or advanced")
	ErrAdminRequired = errors.New("group admin is required")
)

type Store struct {
	c     *mongo.Collection
	users *userstore.Store
	hub   *streams.Hub
	log   *zap.Logger
}

func New(db *mongo.Database, users *userstore.Store, hub *streams.Hub, logger *zap.Logger) *Store {
	return &Store{c: db.Collection("groups"), users: users, hub: hub, log: logger}
}

func normalizeGroup(g *models.Group) {
	g.Level = normalize.GroupLevel(string(g.Level))
	if g.NameCI == "" {
		g.NameCI = text.Fold(g.Name)
	}
	if g.MemberIDs == nil {
		g.MemberIDs = []primitive.ObjectID{}
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	normalizeGroup(&g)
	return g, nil
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		normalizeGroup(&out[i])
	}
	return out, nil
}

// List returns every group by name.
func (s *Store) List(ctx context.Context) ([]models.Group, error) {
	return s.list(ctx, bson.M{})
}

// ListByOwner returns the groups administered by adminID.
func (s *Store) ListByOwner(ctx context.Context, adminID primitive.ObjectID) ([]models.Group, error) {
	return s.list(ctx, bson.M{"admin_id": adminID})
}

// StreamAll delivers every group now and after each group change.
func (s *Store) StreamAll(ctx context.Context) *streams.Subscription[[]models.Group] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.Group, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.List(ctx)
	}, s.log, streams.KeyGroups)
}

// StreamByOwner delivers the groups of one admin.
func (s *Store) StreamByOwner(ctx context.Context, adminID primitive.ObjectID) *streams.Subscription[[]models.Group] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.Group, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.ListByOwner(ctx, adminID)
	}, s.log, streams.KeyGroups)
}

// StreamMembers delivers the users whose group reference is groupID. It
// reads the user side so drift in member_ids does not show up.
func (s *Store) StreamMembers(ctx context.Context, groupID primitive.ObjectID) *streams.Subscription[[]models.User] {
	return s.users.StreamByGroup(ctx, groupID)
}

// Create inserts a group with no members.
func (s *Store) Create(ctx context.Context, name string, level models.GroupLevel, adminID primitive.ObjectID) (models.Group, error) {
	name = normalize.Name(name)
	level = normalize.GroupLevel(string(level))
	switch {
	case name == "":
		return models.Group{}, ErrNameRequired
	case !level.IsValid():
		return models.Group{}, ErrBadLevel
	case adminID.IsZero():
		return models.Group{}, ErrAdminRequired
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Level:     level,
		AdminID:   adminID,
		MemberIDs: []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	s.hub.Notify(streams.KeyGroups)
	return g, nil
}

// Update changes a group's name, level or admin. Nil fields are kept.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, name *string, level *models.GroupLevel, adminID *primitive.ObjectID) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if name != nil {
		n := normalize.Name(*name)
		if strings.TrimSpace(n) == "" {
			return models.Group{}, ErrNameRequired
		}
		set["name"] = n
		set["name_ci"] = text.Fold(n)
	}
	if level != nil {
		l := normalize.GroupLevel(string(*level))
		if !l.IsValid() {
			return models.Group{}, ErrBadLevel
		}
		set["level"] = l
	}
	if adminID != nil {
		if adminID.IsZero() {
			return models.Group{}, ErrAdminRequired
		}
		set["admin_id"] = *adminID
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return models.Group{}, err
	}
	if res.MatchedCount == 0 {
		return models.Group{}, ErrNotFound
	}
	s.hub.Notify(streams.KeyGroups)
	return s.GetByID(ctx, id)
}

// AddMember moves a user into a group: it leaves any previous group,
// joins the member list, then points the user's reference at the group.
// The writes are independent; a failure after the first is reported as
// *dualwrite.PartialFailure.
func (s *Store) AddMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	var steps []dualwrite.Step
	if prev := u.AssignedGroupID; prev != nil && *prev != groupID {
		steps = append(steps, dualwrite.Step{Name: "leave_previous", Run: func(ctx context.Context) error {
			_, err := s.c.UpdateByID(ctx, *prev, bson.M{"$pull": bson.M{"member_ids": userID}})
			return err
		}})
	}
	steps = append(steps,
		dualwrite.Step{Name: "group", Run: func(ctx context.Context) error {
			_, err := s.c.UpdateByID(ctx, groupID, bson.M{
				"$addToSet": bson.M{"member_ids": userID},
				"$set":      bson.M{"updated_at": time.Now().UTC()},
			})
			return err
		}},
		dualwrite.Step{Name: "user", Run: func(ctx context.Context) error {
			return s.users.AssignGroup(ctx, userID, groupID)
		}},
	)

	err = dualwrite.Run(ctx, steps...)
	s.hub.Notify(streams.KeyGroups)
	return err
}

// RemoveMember pulls the user from the member list, then clears the
// user's reference if it still points at this group.
func (s *Store) RemoveMember(ctx context.Context, groupID, userID primitive.ObjectID) error {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return err
	}
	err := dualwrite.Run(ctx,
		dualwrite.Step{Name: "group", Run: func(ctx context.Context) error {
			_, err := s.c.UpdateByID(ctx, groupID, bson.M{
				"$pull": bson.M{"member_ids": userID},
				"$set":  bson.M{"updated_at": time.Now().UTC()},
			})
			return err
		}},
		dualwrite.Step{Name: "user", Run: func(ctx context.Context) error {
			return s.users.ClearGroup(ctx, userID, groupID)
		}},
	)
	s.hub.Notify(streams.KeyGroups)
	return err
}

// Delete removes the group, then clears the group reference of every
// former member as independent concurrent updates. Members are the union
// of member_ids and users pointing at the group.
func (s *Store) Delete(ctx context.Context, groupID primitive.ObjectID) error {
	g, err := s.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	members := map[primitive.ObjectID]struct{}{}
	for _, id := range g.MemberIDs {
		members[id] = struct{}{}
	}
	refs, err := s.users.ListByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	for _, u := range refs {
		members[u.ID] = struct{}{}
	}

	followups := make([]dualwrite.Step, 0, len(members))
	for id := range members {
		userID := id
		followups = append(followups, dualwrite.Step{
			Name: "clear_member:" + userID.Hex(),
			Run: func(ctx context.Context) error {
				return s.users.ClearGroup(ctx, userID, groupID)
			},
		})
	}

	err = dualwrite.Fanout(ctx,
		dualwrite.Step{Name: "group", Run: func(ctx context.Context) error {
			_, err := s.c.DeleteOne(ctx, bson.M{"_id": groupID})
			return err
		}},
		followups...,
	)
	s.hub.Notify(streams.KeyGroups, streams.KeyUsers)
	return err
}

// Count returns the number of groups.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}
