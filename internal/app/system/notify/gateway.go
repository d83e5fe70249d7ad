// internal/app/system/notify/gateway.go
//
// Package notify computes the unread badge and desktop notifications for a
// device. Each subscription starts by taking a baseline snapshot; only
// events and messages that appear after that snapshot produce desktop
// notifications. A slow reader gets the latest counts with the desktop
// items of every snapshot it skipped.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EventSource interface {
	ListCreatedAfter(ctx context.Context, t time.Time) ([]models.Event, error)
}

type ChatSource interface {
	ListCreatedAfter(ctx context.Context, groupID primitive.ObjectID, t time.Time) ([]models.ChatMessage, error)
}

// DeviceState is the per-device watermark and permission store.
type DeviceState interface {
	Watermark(ctx context.Context, deviceID string) (time.Time, error)
	MarkRead(ctx context.Context, deviceID string) (time.Time, error)
	NotificationPermission(ctx context.Context, deviceID string) (models.NotificationPermission, error)
}

// Desktop is one notification to show on the device.
type Desktop struct {
	Kind  string `json:"kind"` // "event" or "message"
	RefID string `json:"ref_id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Update is one badge snapshot.
type Update struct {
	Unread   int       `json:"unread"`
	Events   int       `json:"events"`
	Messages int       `json:"messages"`
	Desktop  []Desktop `json:"desktop,omitempty"`
}

type Gateway struct {
	hub    *streams.Hub
	events EventSource
	chat   ChatSource
	state  DeviceState
	loc    *time.Location
	log    *zap.Logger
}

func NewGateway(hub *streams.Hub, events EventSource, chat ChatSource, state DeviceState, loc *time.Location, logger *zap.Logger) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{hub: hub, events: events, chat: chat, state: state, loc: loc, log: logger}
}

// Subscribe streams the badge for a device. groupID selects the chat whose
// messages count as unread; selfID's own messages are never announced.
// Both may be nil.
func (g *Gateway) Subscribe(ctx context.Context, deviceID string, groupID, selfID *primitive.ObjectID) *streams.Subscription[Update] {
	t := &tracker{g: g, device: deviceID, group: groupID, self: selfID}
	keys := []string{streams.KeyEvents, streams.DeviceKey(deviceID)}
	if groupID != nil {
		keys = append(keys, streams.ChatKey(*groupID))
	}
	return streams.LiveMerged(ctx, g.hub, t.load, mergeUpdates, g.log, keys...)
}

// mergeUpdates keeps next's counts and the desktop items of both.
func mergeUpdates(pending, next Update) Update {
	if len(pending.Desktop) == 0 {
		return next
	}
	desktop := make([]Desktop, 0, len(pending.Desktop)+len(next.Desktop))
	desktop = append(desktop, pending.Desktop...)
	next.Desktop = append(desktop, next.Desktop...)
	return next
}

// MarkAsRead moves the device's watermark to now and re-zeroes every open
// subscription of the device.
func (g *Gateway) MarkAsRead(ctx context.Context, deviceID string) (time.Time, error) {
	at, err := g.state.MarkRead(ctx, deviceID)
	if err != nil {
		return time.Time{}, err
	}
	g.hub.Notify(streams.DeviceKey(deviceID))
	return at, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Subscription state                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// tracker is owned by one subscription; Live calls load sequentially.
type tracker struct {
	g      *Gateway
	device string
	group  *primitive.ObjectID
	self   *primitive.ObjectID

	live       bool
	seenEvents map[primitive.ObjectID]struct{}
	seenMsgs   map[primitive.ObjectID]struct{}
}

func (t *tracker) load(ctx context.Context) (Update, error) {
	wm, err := t.g.state.Watermark(ctx, t.device)
	if err != nil {
		return Update{}, err
	}
	events, err := t.g.events.ListCreatedAfter(ctx, wm)
	if err != nil {
		return Update{}, err
	}
	var msgs []models.ChatMessage
	if t.group != nil {
		if msgs, err = t.g.chat.ListCreatedAfter(ctx, *t.group, wm); err != nil {
			return Update{}, err
		}
	}

	u := Update{Events: len(events), Messages: len(msgs)}
	u.Unread = u.Events + u.Messages

	if t.live {
		u.Desktop = t.announce(ctx, events, msgs)
	}
	t.remember(events, msgs)
	t.live = true
	return u, nil
}

func (t *tracker) announce(ctx context.Context, events []models.Event, msgs []models.ChatMessage) []Desktop {
	perm, err := t.g.state.NotificationPermission(ctx, t.device)
	if err != nil {
		t.g.log.Warn("notification permission unavailable", zap.String("device", t.device), zap.Error(err))
		return nil
	}
	if perm != models.PermissionGranted {
		return nil
	}

	var out []Desktop
	for _, e := range events {
		if _, seen := t.seenEvents[e.ID]; seen {
			continue
		}
		out = append(out, eventDesktop(e, t.g.loc))
	}
	for _, m := range msgs {
		if _, seen := t.seenMsgs[m.ID]; seen {
			continue
		}
		if t.self != nil && m.SenderID == *t.self {
			continue
		}
		out = append(out, messageDesktop(m))
	}
	return out
}

func (t *tracker) remember(events []models.Event, msgs []models.ChatMessage) {
	t.seenEvents = make(map[primitive.ObjectID]struct{}, len(events))
	for _, e := range events {
		t.seenEvents[e.ID] = struct{}{}
	}
	t.seenMsgs = make(map[primitive.ObjectID]struct{}, len(msgs))
	for _, m := range msgs {
		t.seenMsgs[m.ID] = struct{}{}
	}
}

func eventDesktop(e models.Event, loc *time.Location) Desktop {
	title := e.Title
	if title == "" {
		title = "Nouvel événement"
	}
	when := "bientôt"
	if !e.Date.IsZero() {
		when = e.StartsAt(loc).Format("02/01/2006")
	}
	return Desktop{
		Kind:  "event",
		RefID: e.ID.Hex(),
		Title: "Maratech: " + title,
		Body:  fmt.Sprintf("Un nouvel événement a été créé pour le %s.", when),
	}
}

func messageDesktop(m models.ChatMessage) Desktop {
	from := m.SenderName
	if from == "" {
		from = "Groupe"
	}
	body := m.Text
	if body == "" {
		body = "Nouveau message reçu."
	}
	return Desktop{
		Kind:  "message",
		RefID: m.ID.Hex(),
		Title: "Message de " + from,
		Body:  body,
	}
}
