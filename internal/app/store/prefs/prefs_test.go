package prefs_test

import (
	"testing"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/store/prefs"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermark(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	store := prefs.New(rdb)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wm, err := store.Watermark(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, wm.IsZero(), "new device starts at the zero watermark")

	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return first })
	got, err := store.MarkRead(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(first))

	second := first.Add(time.Minute)
	store.SetClock(func() time.Time { return second })
	_, err = store.MarkRead(ctx, "dev-1")
	require.NoError(t, err)

	wm, err = store.Watermark(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, wm.Equal(second), "second mark wins, got %v", wm)

	_, err = store.Watermark(ctx, "")
	assert.ErrorIs(t, err, prefs.ErrNoDevice)
}

func TestAccessibility(t *testing.T) {
	rdb, _ := testutil.SetupTestRedis(t)
	store := prefs.New(rdb)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.Accessibility(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultAccessibilityProfile(), p)

	saved, err := store.SaveAccessibility(ctx, "dev-2", models.AccessibilityProfile{
		TextScale:    3,
		VisualNeeds:  models.VisualBlind,
		LanguageCode: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaxTextScale, saved.TextScale)
	assert.True(t, saved.HighContrast, "blind forces high contrast")
	assert.Equal(t, models.DefaultLanguage, saved.LanguageCode)

	done, err := store.CompleteWizard(ctx, "dev-2")
	require.NoError(t, err)
	assert.True(t, done.WizardCompleted)
	assert.Equal(t, models.VisualBlind, done.VisualNeeds)

	again, err := store.Accessibility(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, done, again)
}

func TestNotificationPermission(t *testing.T) {
	rdb, mr := testutil.SetupTestRedis(t)
	store := prefs.New(rdb)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p, err := store.NotificationPermission(ctx, "dev-3")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionDefault, p)

	require.NoError(t, store.SetNotificationPermission(ctx, "dev-3", models.PermissionGranted))
	p, err = store.NotificationPermission(ctx, "dev-3")
	require.NoError(t, err)
	assert.Equal(t, models.PermissionGranted, p)

	assert.Error(t, store.SetNotificationPermission(ctx, "dev-3", "maybe"))

	require.NoError(t, store.Forget(ctx, "dev-3"))
	assert.False(t, mr.Exists("maratech:device:dev-3:notify_permission"))
}
