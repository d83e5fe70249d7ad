// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "maratech:oauth_state:"

// Store keeps OAuth2 state tokens in Redis for CSRF protection. Each
// token expires on its own TTL and is consumed on first validation.
type Store struct {
	rdb redis.Cmdable
}

// New creates a new OAuth state Store.
func New(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// Save stores a state token with the URL to return to after sign-in.
func (s *Store) Save(ctx context.Context, state, returnURL string, ttl time.Duration) error {
	return s.rdb.Set(ctx, keyPrefix+state, returnURL, ttl).Err()
}

// Validate consumes a state token. It returns the saved return URL and
// true when the token existed and had not expired.
func (s *Store) Validate(ctx context.Context, state string) (returnURL string, valid bool, err error) {
	if state == "" {
		return "", false, nil
	}
	v, err := s.rdb.GetDel(ctx, keyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
