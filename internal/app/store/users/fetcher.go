// internal/app/store/users/fetcher.go
package userstore

import (
	"context"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *Store
}

// NewFetcher creates a UserFetcher backed by the user store.
func NewFetcher(users *Store) *Fetcher {
	return &Fetcher{users: users}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found,
// disabled, or if any error occurs. This implements auth.UserFetcher.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.users.GetByID(ctx, oid)
	if err != nil || !u.IsActive {
		return nil
	}

	return SessionUser(u)
}

// SessionUser builds the session payload for a directory record.
func SessionUser(u *models.User) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  string(u.Role),
	}
	if u.AssignedGroupID != nil {
		su.GroupID = u.AssignedGroupID.Hex()
	}
	return su
}
