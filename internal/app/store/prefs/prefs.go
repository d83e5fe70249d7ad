// internal/app/store/prefs/prefs.go
//
// Package prefs keeps per-device state in Redis: the notification
// watermark, the accessibility profile and the desktop notification
// permission. Keys live under maratech:device:<deviceID>: and expire after
// a year without writes.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "maratech:device:"
	ttl       = 365 * 24 * time.Hour
)

var ErrNoDevice = errors.New("device id is required")

type Store struct {
	rdb redis.Cmdable
	now func() time.Time
}

func New(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb, now: time.Now}
}

func key(deviceID, field string) string {
	return keyPrefix + deviceID + ":" + field
}

/*─────────────────────────────────────────────────────────────────────────────*
| Watermark                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Watermark returns the last time the device marked notifications read.
// A device that never did returns the zero time.
func (s *Store) Watermark(ctx context.Context, deviceID string) (time.Time, error) {
	if deviceID == "" {
		return time.Time{}, ErrNoDevice
	}
	ms, err := s.rdb.Get(ctx, key(deviceID, "watermark")).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// MarkRead sets the watermark to now and returns it.
func (s *Store) MarkRead(ctx context.Context, deviceID string) (time.Time, error) {
	if deviceID == "" {
		return time.Time{}, ErrNoDevice
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	if err := s.rdb.Set(ctx, key(deviceID, "watermark"), strconv.FormatInt(now.UnixMilli(), 10), ttl).Err(); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Accessibility                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// Accessibility returns the device's profile, or the default profile.
func (s *Store) Accessibility(ctx context.Context, deviceID string) (models.AccessibilityProfile, error) {
	if deviceID == "" {
		return models.AccessibilityProfile{}, ErrNoDevice
	}
	raw, err := s.rdb.Get(ctx, key(deviceID, "a11y")).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.DefaultAccessibilityProfile(), nil
	}
	if err != nil {
		return models.AccessibilityProfile{}, err
	}
	p := models.DefaultAccessibilityProfile()
	if err := json.Unmarshal(raw, &p); err != nil {
		// unreadable state falls back to defaults
		return models.DefaultAccessibilityProfile(), nil
	}
	return p.Normalized(), nil
}

// SaveAccessibility normalizes and stores the profile, returning what was stored.
func (s *Store) SaveAccessibility(ctx context.Context, deviceID string, p models.AccessibilityProfile) (models.AccessibilityProfile, error) {
	if deviceID == "" {
		return models.AccessibilityProfile{}, ErrNoDevice
	}
	p = p.Normalized()
	raw, err := json.Marshal(p)
	if err != nil {
		return models.AccessibilityProfile{}, err
	}
	if err := s.rdb.Set(ctx, key(deviceID, "a11y"), raw, ttl).Err(); err != nil {
		return models.AccessibilityProfile{}, err
	}
	return p, nil
}

// CompleteWizard marks the onboarding wizard done, keeping the rest of the profile.
func (s *Store) CompleteWizard(ctx context.Context, deviceID string) (models.AccessibilityProfile, error) {
	p, err := s.Accessibility(ctx, deviceID)
	if err != nil {
		return models.AccessibilityProfile{}, err
	}
	p.WizardCompleted = true
	return s.SaveAccessibility(ctx, deviceID, p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Notification permission                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// NotificationPermission returns the device's permission state, "default" when unset.
func (s *Store) NotificationPermission(ctx context.Context, deviceID string) (models.NotificationPermission, error) {
	if deviceID == "" {
		return models.PermissionDefault, ErrNoDevice
	}
	v, err := s.rdb.Get(ctx, key(deviceID, "notify_permission")).Result()
	if errors.Is(err, redis.Nil) {
		return models.PermissionDefault, nil
	}
	if err != nil {
		return models.PermissionDefault, err
	}
	p := models.NotificationPermission(v)
	if !p.IsValid() {
		return models.PermissionDefault, nil
	}
	return p, nil
}

// SetNotificationPermission stores a permission state reported by the browser.
func (s *Store) SetNotificationPermission(ctx context.Context, deviceID string, p models.NotificationPermission) error {
	if deviceID == "" {
		return ErrNoDevice
	}
	if !p.IsValid() {
		return errors.New("unknown notification permission " + strconv.Quote(string(p)))
	}
	return s.rdb.Set(ctx, key(deviceID, "notify_permission"), string(p), ttl).Err()
}

// Forget removes every key of a device.
func (s *Store) Forget(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return ErrNoDevice
	}
	return s.rdb.Del(ctx,
		key(deviceID, "watermark"),
		key(deviceID, "a11y"),
		key(deviceID, "notify_permission"),
	).Err()
}
