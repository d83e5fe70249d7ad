// internal/app/store/logins/loginstore.go
package loginstore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/ratelimit"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrBadMethod is returned when a record names an unknown sign-in method.
var ErrBadMethod = errors.New("unknown login method")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("login_records")}
}

// Create inserts a LoginRecord. If CreatedAt is zero, it's set to time.Now().UTC().
func (s *Store) Create(ctx context.Context, rec models.LoginRecord) error {
	if !models.IsValidLoginMethod(rec.Method) {
		return ErrBadMethod
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// CreateFrom builds a LoginRecord from the HTTP request and inserts it.
func (s *Store) CreateFrom(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) error {
	return s.Create(ctx, models.LoginRecord{
		UserID: userID,
		IP:     ratelimit.ClientIP(r),
		Method: method,
	})
}

// Recent returns a user's latest sign-ins, newest first.
func (s *Store) Recent(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.LoginRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.LoginRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveUsersSince counts distinct users who signed in at or after since.
func (s *Store) ActiveUsersSince(ctx context.Context, since time.Time) (int, error) {
	ids, err := s.c.Distinct(ctx, "user_id", bson.M{"created_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
