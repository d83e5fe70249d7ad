package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/features/notifications"
	chatstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/chat"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/prefs"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/devicecookie"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/notify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubPublisher struct {
	err  error
	sent []pushnotify.Message
}

func (p *stubPublisher) Publish(_ context.Context, m pushnotify.Message) error {
	p.sent = append(p.sent, m)
	return p.err
}

func onDevice(r *http.Request, id string) *http.Request {
	return r.WithContext(devicecookie.WithID(r.Context(), id))
}

// newPrefsHandler builds a handler that only needs Redis.
func newPrefsHandler(t *testing.T, pub pushnotify.Publisher) *notifications.Handler {
	t.Helper()
	rdb, _ := testutil.SetupTestRedis(t)
	logger := zap.NewNop()
	return notifications.NewHandler(nil, prefs.New(rdb), pub, "", nil, uierrors.NewErrorLogger(logger), logger)
}

func TestPermission_DefaultThenGranted(t *testing.T) {
	h := newPrefsHandler(t, &stubPublisher{})

	rec := testutil.NewRecorder()
	h.ServePermission(rec, onDevice(testutil.NewRequest(http.MethodGet, "/notifications/permission"), "dev-1"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"default"`)

	rec = testutil.NewRecorder()
	h.HandlePermission(rec, onDevice(testutil.NewJSONRequest(http.MethodPost, "/notifications/permission",
		map[string]string{"permission": "granted"}), "dev-1"))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServePermission(rec, onDevice(testutil.NewRequest(http.MethodGet, "/notifications/permission"), "dev-1"))
	rec.AssertContains(t, `"granted"`)
}

func TestPermission_Rejects(t *testing.T) {
	h := newPrefsHandler(t, &stubPublisher{})

	rec := testutil.NewRecorder()
	h.HandlePermission(rec, onDevice(testutil.NewJSONRequest(http.MethodPost, "/notifications/permission",
		map[string]string{"permission": "maybe"}), "dev-1"))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.ServePermission(rec, testutil.NewRequest(http.MethodGet, "/notifications/permission"))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHandleTest(t *testing.T) {
	pub := &stubPublisher{}
	h := newPrefsHandler(t, pub)

	rec := testutil.NewRecorder()
	h.HandleTest(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/notifications/test", testutil.CoachUser()))
	rec.AssertStatus(t, http.StatusAccepted)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, pushnotify.DefaultTopic, pub.sent[0].Topic)
	assert.NotEmpty(t, pub.sent[0].Title)
}

func TestHandleTest_PublishFails(t *testing.T) {
	h := newPrefsHandler(t, &stubPublisher{err: errors.New("nats: connection closed")})

	rec := testutil.NewRecorder()
	h.HandleTest(rec, testutil.NewAuthenticatedRequest(http.MethodPost, "/notifications/test", testutil.CoachUser()))
	rec.AssertStatus(t, http.StatusInternalServerError)
	assert.NotContains(t, rec.Body.String(), "nats")
}

func TestStreamSnapshotAndRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb, _ := testutil.SetupTestRedis(t)
	logger := zap.NewNop()
	hub := streams.NewHub(logger)
	p := prefs.New(rdb)
	gw := notify.NewGateway(hub, eventstore.New(db, hub, logger), chatstore.New(db, hub, logger, 0, 0), p, time.UTC, logger)
	h := notifications.NewHandler(gw, p, &stubPublisher{}, "", nil, uierrors.NewErrorLogger(logger), logger)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	testutil.NewFixtures(t, db).CreateEvent(ctx, "Fresh run", time.Now().UTC(), nil, 0)

	snapshot := func() notify.Update {
		rec := testutil.NewRecorder()
		h.ServeStream(rec, onDevice(testutil.NewAuthenticatedRequest(http.MethodGet, "/notifications/stream",
			testutil.MemberUser(primitive.NilObjectID)), "dev-9"))
		rec.AssertStatus(t, http.StatusOK)
		var frame struct {
			Data notify.Update `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &frame))
		return frame.Data
	}

	assert.Equal(t, 1, snapshot().Unread)

	rec := testutil.NewRecorder()
	h.HandleRead(rec, onDevice(testutil.NewRequest(http.MethodPost, "/notifications/read"), "dev-9"))
	rec.AssertStatus(t, http.StatusOK)

	assert.Equal(t, 0, snapshot().Unread)
}
