package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/notify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeData is an in-memory event/chat/device store.
type fakeData struct {
	mu        sync.Mutex
	events    []models.Event
	msgs      []models.ChatMessage
	watermark time.Time
	perm      models.NotificationPermission
	clock     time.Time
}

func (f *fakeData) ListCreatedAfter(_ context.Context, t time.Time) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if e.CreatedAt.After(t) {
			out = append(out, e)
		}
	}
	return out, nil
}

type chatView struct{ *fakeData }

func (c chatView) ListCreatedAfter(_ context.Context, gid primitive.ObjectID, t time.Time) ([]models.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range c.msgs {
		if m.GroupID == gid && m.CreatedAt.After(t) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeData) Watermark(context.Context, string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watermark, nil
}

func (f *fakeData) MarkRead(context.Context, string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	f.watermark = f.clock
	return f.watermark, nil
}

func (f *fakeData) NotificationPermission(context.Context, string) (models.NotificationPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perm, nil
}

func (f *fakeData) addEvent(title string) {
	f.mu.Lock()
	f.clock = f.clock.Add(time.Second)
	f.events = append(f.events, models.Event{ID: primitive.NewObjectID(), Title: title, CreatedAt: f.clock})
	f.mu.Unlock()
}

func (f *fakeData) addMsg(gid, sender primitive.ObjectID, text string) {
	f.mu.Lock()
	f.clock = f.clock.Add(time.Second)
	f.msgs = append(f.msgs, models.ChatMessage{ID: primitive.NewObjectID(), GroupID: gid, SenderID: sender, SenderName: "Sami", Text: text, CreatedAt: f.clock})
	f.mu.Unlock()
}

func setup() (*notify.Gateway, *streams.Hub, *fakeData) {
	data := &fakeData{perm: models.PermissionGranted, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	hub := streams.NewHub(zap.NewNop())
	return notify.NewGateway(hub, data, chatView{data}, data, time.UTC, zap.NewNop()), hub, data
}

func next(t *testing.T, sub *streams.Subscription[notify.Update]) notify.Update {
	t.Helper()
	select {
	case u := <-sub.C():
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("no update")
	}
	return notify.Update{}
}

func TestGateway_BaselineIsSilent(t *testing.T) {
	gw, hub, data := setup()
	data.addEvent("Already there")

	sub := gw.Subscribe(context.Background(), "dev", nil, nil)
	defer sub.Close()

	first := next(t, sub)
	assert.Equal(t, 1, first.Unread)
	assert.Empty(t, first.Desktop, "initial snapshot must not notify")

	data.addEvent("Fresh run")
	hub.Notify(streams.KeyEvents)
	u := next(t, sub)
	assert.Equal(t, 2, u.Unread)
	require.Len(t, u.Desktop, 1)
	assert.Equal(t, "Maratech: Fresh run", u.Desktop[0].Title)
}

func TestGateway_MessagesFromSelfAreCountedNotAnnounced(t *testing.T) {
	gw, hub, data := setup()
	gid := primitive.NewObjectID()
	me, other := primitive.NewObjectID(), primitive.NewObjectID()

	sub := gw.Subscribe(context.Background(), "dev", &gid, &me)
	defer sub.Close()
	assert.Equal(t, 0, next(t, sub).Unread)

	data.addMsg(gid, me, "mine")
	data.addMsg(gid, other, "salut")
	data.addMsg(primitive.NewObjectID(), other, "other group")
	hub.Notify(streams.ChatKey(gid))

	u := next(t, sub)
	assert.Equal(t, 2, u.Messages)
	require.Len(t, u.Desktop, 1)
	assert.Equal(t, "Message de Sami", u.Desktop[0].Title)
	assert.Equal(t, "salut", u.Desktop[0].Body)
}

func TestGateway_NoDesktopWithoutPermission(t *testing.T) {
	gw, hub, data := setup()
	data.perm = models.PermissionDefault

	sub := gw.Subscribe(context.Background(), "dev", nil, nil)
	defer sub.Close()
	next(t, sub)

	data.addEvent("Quiet")
	hub.Notify(streams.KeyEvents)
	u := next(t, sub)
	assert.Equal(t, 1, u.Unread)
	assert.Empty(t, u.Desktop)
}

func TestGateway_MarkAsReadZeroesOpenSubscriptions(t *testing.T) {
	gw, _, data := setup()
	data.addEvent("a")
	data.addEvent("b")

	sub := gw.Subscribe(context.Background(), "dev", nil, nil)
	defer sub.Close()
	assert.Equal(t, 2, next(t, sub).Unread)

	first, err := gw.MarkAsRead(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, 0, next(t, sub).Unread)

	second, err := gw.MarkAsRead(context.Background(), "dev")
	require.NoError(t, err)
	assert.True(t, second.After(first))
	assert.Equal(t, 0, next(t, sub).Unread)

	wm, _ := data.Watermark(context.Background(), "dev")
	assert.Equal(t, second, wm)
}

func TestMergeUpdates_KeepsSkippedDesktopItems(t *testing.T) {
	a := notify.Desktop{Kind: "event", Title: "Maratech: A"}
	b := notify.Desktop{Kind: "message", Title: "Message de Sami"}

	pending := notify.Update{Unread: 1, Events: 1, Desktop: []notify.Desktop{a}}
	latest := notify.Update{Unread: 2, Events: 1, Messages: 1, Desktop: []notify.Desktop{b}}

	got := notify.MergeUpdates(pending, latest)
	assert.Equal(t, 2, got.Unread)
	assert.Equal(t, 1, got.Messages)
	assert.Equal(t, []notify.Desktop{a, b}, got.Desktop)

	reset := notify.MergeUpdates(pending, notify.Update{})
	assert.Equal(t, 0, reset.Unread)
	assert.Equal(t, []notify.Desktop{a}, reset.Desktop)

	quiet := notify.MergeUpdates(notify.Update{Unread: 3}, latest)
	assert.Equal(t, latest, quiet)
}
