// internal/app/store/credentials/credentialstore.go
package credentialstore

import (
	"context"
	"errors"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound        = errors.New("credential not found")
	ErrWrongCredential = errors.New("wrong credential")
	ErrDuplicateEmail  = errors.New("a credential with this email already exists")
	ErrEmptySecret     = errors.New("secret must not be empty")
)

// DefaultSecret is the initial secret for a user created without one:
// "000" followed by the last three digits of the national id. The PIN
// sign-in rebuilds the same value from the typed PIN.
//
// Legacy convention: it derives a credential from a quasi-public value.
func DefaultSecret(cinLast3 string) string {
	return "000" + cinLast3
}

type credential struct {
	UserID    primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	Hash      []byte             `bson:"hash"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// Store keeps bcrypt hashes keyed by user id, unique by email.
type Store struct {
	c    *mongo.Collection
	cost int
}

func New(db *mongo.Database) *Store {
	return NewWithCost(db, bcrypt.DefaultCost)
}

// NewWithCost lets tests use bcrypt.MinCost.
func NewWithCost(db *mongo.Database, cost int) *Store {
	return &Store{c: db.Collection("credentials"), cost: cost}
}

// Provision creates the credential for a new user.
func (s *Store) Provision(ctx context.Context, userID primitive.ObjectID, email, secret string) error {
	if secret == "" {
		return ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.c.InsertOne(ctx, credential{
		UserID:    userID,
		Email:     normalize.Email(email),
		Hash:      hash,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Verify checks secret against the credential registered for email and
// returns the owning user id.
func (s *Store) Verify(ctx context.Context, email, secret string) (primitive.ObjectID, error) {
	var cr credential
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&cr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	if bcrypt.CompareHashAndPassword(cr.Hash, []byte(secret)) != nil {
		return cr.UserID, ErrWrongCredential
	}
	return cr.UserID, nil
}

// SetSecret replaces a user's secret.
func (s *Store) SetSecret(ctx context.Context, userID primitive.ObjectID, secret string) error {
	if secret == "" {
		return ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return err
	}
	res, err := s.c.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"hash": hash, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateEmail moves a credential to a new sign-in email.
func (s *Store) UpdateEmail(ctx context.Context, userID primitive.ObjectID, email string) error {
	res, err := s.c.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"email": normalize.Email(email), "updated_at": time.Now().UTC()}})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user's credential. A missing credential is not an error.
func (s *Store) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// Exists reports whether email already has a credential.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)})
	return n > 0, err
}
