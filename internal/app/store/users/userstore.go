// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/authz"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/dualwrite"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrAmbiguousName  = errors.New("name matches more than one user")
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	ErrBadRole        = errors.New("role is not a known role")
	ErrNameRequired   = errors.New("full name is required")
	ErrEmailRequired  = errors.New("email is required")
	ErrSecretNeeded   = errors.New("a secret or the last 3 digits of the national id is required")
)

type Store struct {
	c      *mongo.Collection
	groups *mongo.Collection
	creds  *credentialstore.Store
	hub    *streams.Hub
	log    *zap.Logger
}

func New(db *mongo.Database, creds *credentialstore.Store, hub *streams.Hub, logger *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("users"),
		groups: db.Collection("groups"),
		creds:  creds,
		hub:    hub,
		log:    logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var raw rawUser
	err := s.c.FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := raw.toModel()
	return &u, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.User, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	for cur.Next(ctx) {
		var raw rawUser
		if err := cur.Decode(&raw); err != nil {
			s.log.Warn("skipping undecodable user", zap.Error(err))
			continue
		}
		out = append(out, raw.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullNameCI != out[j].FullNameCI {
			return out[i].FullNameCI < out[j].FullNameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks a user up by exact email. The normalized form is tried
// first, then the trimmed input as typed for records imported with mixed case.
// Session resolution uses it only after an id lookup missed.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	norm := normalize.Email(email)
	if norm == "" {
		return nil, ErrNotFound
	}
	u, err := s.findOne(ctx, bson.M{"email": norm})
	if !errors.Is(err, ErrNotFound) {
		return u, err
	}
	if typed := strings.TrimSpace(email); typed != norm {
		return s.findOne(ctx, bson.M{"email": typed})
	}
	return nil, ErrNotFound
}

// ResolveLoginName resolves the name typed at PIN sign-in to one user.
// An exact folded match wins, the first one when names repeat. Otherwise
// the folded name must be contained in exactly one user's name; several
// matches give ErrAmbiguousName and none gives ErrNotFound.
func (s *Store) ResolveLoginName(ctx context.Context, name string) (models.User, error) {
	folded := text.Fold(normalize.Name(name))
	if folded == "" {
		return models.User{}, ErrNotFound
	}
	exact, err := s.find(ctx, bson.M{"full_name_ci": folded})
	if err != nil {
		return models.User{}, err
	}
	if len(exact) > 0 {
		return exact[0], nil
	}

	pattern := regexp.QuoteMeta(folded)
	all, err := s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"full_name_ci": primitive.Regex{Pattern: pattern}},
		bson.M{"fullName": primitive.Regex{Pattern: pattern, Options: "i"}},
		bson.M{"name": primitive.Regex{Pattern: pattern, Options: "i"}},
	}})
	if err != nil {
		return models.User{}, err
	}
	// legacy names are folded after decoding, so check containment again
	var match []models.User
	for _, u := range all {
		if strings.Contains(u.FullNameCI, folded) {
			match = append(match, u)
		}
	}
	switch len(match) {
	case 0:
		return models.User{}, ErrNotFound
	case 1:
		return match[0], nil
	default:
		return models.User{}, ErrAmbiguousName
	}
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Role    models.Role
	GroupID *primitive.ObjectID
	Search  string
}

// List returns users sorted by folded name. Role filtering happens after
// decoding because legacy role strings are normalized on read.
func (s *Store) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	q := bson.M{}
	if f.GroupID != nil {
		q = groupFilter(*f.GroupID)
	}
	if f.Search != "" {
		q["full_name_ci"] = primitive.Regex{Pattern: regexp.QuoteMeta(text.Fold(f.Search))}
	}
	users, err := s.find(ctx, q)
	if err != nil || f.Role == "" {
		return users, err
	}
	out := users[:0]
	for _, u := range users {
		if u.Role == f.Role {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListByGroup returns the users whose group reference points at groupID.
// Membership is read from the user side, not the group's member_ids.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.User, error) {
	return s.find(ctx, groupFilter(groupID))
}

func groupFilter(groupID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"assigned_group_id": groupID},
		bson.M{"assigned_group_id": bson.M{"$exists": false}, "assignedGroupId": bson.M{"$in": bson.A{groupID, groupID.Hex()}}},
	}}
}

// StreamAll delivers the full directory now and after every user change.
func (s *Store) StreamAll(ctx context.Context) *streams.Subscription[[]models.User] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.User, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.List(ctx, ListFilter{})
	}, s.log, streams.KeyUsers)
}

// StreamByGroup delivers a group's roster now and after every user change.
func (s *Store) StreamByGroup(ctx context.Context, groupID primitive.ObjectID) *streams.Subscription[[]models.User] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.User, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.ListByGroup(ctx, groupID)
	}, s.log, streams.KeyUsers)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Writes                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// NewUser is the input to Create. Secret may be empty when CINLast3 is set.
type NewUser struct {
	FullName string
	Email    string
	Phone    string
	CINLast3 string
	Role     models.Role
	Secret   string
}

// Create provisions the credential, then inserts the directory record.
// The two writes are not atomic; a record failure after the credential
// was stored is reported as *dualwrite.PartialFailure.
func (s *Store) Create(ctx context.Context, in NewUser) (models.User, error) {
	u := models.User{
		ID:       primitive.NewObjectID(),
		FullName: normalize.Name(in.FullName),
		Email:    normalize.Email(in.Email),
		Phone:    normalize.Phone(in.Phone),
		CINLast3: strings.TrimSpace(in.CINLast3),
		Role:     in.Role,
		IsActive: true,
	}
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	switch {
	case !u.Role.IsValid():
		return models.User{}, ErrBadRole
	case u.FullName == "":
		return models.User{}, ErrNameRequired
	case u.Email == "":
		return models.User{}, ErrEmailRequired
	}
	secret := in.Secret
	if secret == "" {
		if u.CINLast3 == "" {
			return models.User{}, ErrSecretNeeded
		}
		secret = credentialstore.DefaultSecret(u.CINLast3)
	}

	if _, err := s.GetByEmail(ctx, u.Email); err == nil {
		return models.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	u.FullNameCI = text.Fold(u.FullName)
	u.Permissions = authz.Derive(u.Role)
	u.CreatedAt = now
	u.UpdatedAt = now

	err := dualwrite.Run(ctx,
		dualwrite.Step{Name: "credential", Run: func(ctx context.Context) error {
			return s.creds.Provision(ctx, u.ID, u.Email, secret)
		}},
		dualwrite.Step{Name: "record", Run: func(ctx context.Context) error {
			_, err := s.c.InsertOne(ctx, u)
			return err
		}},
	)
	var pf *dualwrite.PartialFailure
	switch {
	case err == nil:
	case errors.As(err, &pf):
		s.log.Error("user created without directory record",
			zap.String("user_id", u.ID.Hex()), zap.String("failed_step", pf.FailedStep), zap.Error(pf.Err))
		return models.User{}, err
	case errors.Is(err, credentialstore.ErrDuplicateEmail):
		return models.User{}, ErrDuplicateEmail
	default:
		return models.User{}, err
	}
	s.hub.Notify(streams.KeyUsers)
	return u, nil
}

// Update holds the editable fields; nil fields are left unchanged.
// Group assignment is owned by the group store.
type Update struct {
	FullName *string
	Email    *string
	Phone    *string
	CINLast3 *string
	Role     *models.Role
}

// Empty reports whether no field is set.
func (u Update) Empty() bool {
	return u.FullName == nil && u.Email == nil && u.Phone == nil && u.CINLast3 == nil && u.Role == nil
}

// Update applies a partial edit. Concurrent edits are last-write-wins.
// An email change moves the credential first, then the record.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (*models.User, error) {
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	unset := bson.M{}
	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		if name == "" {
			return nil, ErrNameRequired
		}
		set["full_name"] = name
		set["full_name_ci"] = text.Fold(name)
		unset["fullName"] = ""
		unset["name"] = ""
	}
	if upd.Phone != nil {
		set["phone"] = normalize.Phone(*upd.Phone)
	}
	if upd.CINLast3 != nil {
		set["cin_last_digits"] = strings.TrimSpace(*upd.CINLast3)
		unset["cinLastDigits"] = ""
	}
	role := cur.Role
	if upd.Role != nil {
		if !upd.Role.IsValid() {
			return nil, ErrBadRole
		}
		role = *upd.Role
		set["role"] = role
	}
	// the cached permission set always follows the role
	set["permissions"] = authz.Derive(role)

	var steps []dualwrite.Step
	if upd.Email != nil {
		email := normalize.Email(*upd.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != cur.Email {
			if other, err := s.GetByEmail(ctx, email); err == nil && other.ID != id {
				return nil, ErrDuplicateEmail
			}
			set["email"] = email
			steps = append(steps, dualwrite.Step{Name: "credential", Run: func(ctx context.Context) error {
				err := s.creds.UpdateEmail(ctx, id, email)
				if errors.Is(err, credentialstore.ErrNotFound) {
					return nil
				}
				return err
			}})
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	steps = append(steps, dualwrite.Step{Name: "record", Run: func(ctx context.Context) error {
		_, err := s.c.UpdateByID(ctx, id, update)
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}})

	if err := dualwrite.Run(ctx, steps...); err != nil {
		if errors.Is(err, credentialstore.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	s.hub.Notify(streams.KeyUsers)
	return s.GetByID(ctx, id)
}

// SetActive enables or disables sign-in for a user.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"is_active": active, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"isActive": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.hub.Notify(streams.KeyUsers)
	return nil
}

// TouchLastLogin records a successful sign-in time.
func (s *Store) TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login": at.UTC().Truncate(time.Millisecond)}})
	return err
}

// Delete removes the user from any group member list, then the record,
// then the credential. Steps after the first that fail are reported as
// *dualwrite.PartialFailure.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	err := dualwrite.Run(ctx,
		dualwrite.Step{Name: "membership", Run: func(ctx context.Context) error {
			_, err := s.groups.UpdateMany(ctx, bson.M{"member_ids": id}, bson.M{"$pull": bson.M{"member_ids": id}})
			return err
		}},
		dualwrite.Step{Name: "record", Run: func(ctx context.Context) error {
			_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
			return err
		}},
		dualwrite.Step{Name: "credential", Run: func(ctx context.Context) error {
			return s.creds.Delete(ctx, id)
		}},
	)
	s.hub.Notify(streams.KeyUsers, streams.KeyGroups)
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Group reference (written by the group store)                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// AssignGroup points the user's group reference at groupID.
func (s *Store) AssignGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, userID, bson.M{
		"$set":   bson.M{"assigned_group_id": groupID, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"assignedGroupId": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	s.hub.Notify(streams.KeyUsers)
	return nil
}

// ClearGroup nulls the user's group reference if it still points at
// groupID. A user already moved elsewhere is left alone.
func (s *Store) ClearGroup(ctx context.Context, userID, groupID primitive.ObjectID) error {
	filter := groupFilter(groupID)
	filter["_id"] = userID
	_, err := s.c.UpdateOne(ctx, filter, bson.M{
		"$set":   bson.M{"assigned_group_id": nil, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"assignedGroupId": ""},
	})
	if err != nil {
		return fmt.Errorf("clear group of %s: %w", userID.Hex(), err)
	}
	s.hub.Notify(streams.KeyUsers)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Statistics                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Statistics summarizes the directory for the admin dashboards.
type Statistics struct {
	Total        int                 `json:"total"`
	Active       int                 `json:"active"`
	Inactive     int                 `json:"inactive"`
	WithoutGroup int                 `json:"without_group"`
	ByRole       map[models.Role]int `json:"by_role"`
}

// ComputeStatistics counts users by state and role. Roles are counted
// after normalization so legacy role strings land in the right bucket.
func (s *Store) ComputeStatistics(ctx context.Context) (Statistics, error) {
	users, err := s.find(ctx, bson.M{})
	if err != nil {
		return Statistics{}, err
	}
	st := Statistics{ByRole: map[models.Role]int{}}
	for _, r := range models.AllRoles {
		st.ByRole[r] = 0
	}
	for _, u := range users {
		st.Total++
		if u.IsActive {
			st.Active++
		} else {
			st.Inactive++
		}
		if u.AssignedGroupID == nil {
			st.WithoutGroup++
		}
		st.ByRole[u.Role]++
	}
	return st, nil
}

// Count returns the number of user documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{}, options.Count())
}
