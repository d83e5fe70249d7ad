// internal/app/system/pushnotify/pushnotify.go
//
// Package pushnotify fans server-originated notifications out to devices.
// The service publishes; a separate push gateway subscribed to the push
// subjects delivers to browsers and phones.
package pushnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultTopic is the topic every device subscribes to.
const DefaultTopic = "all_events"

// Message is one push notification.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Topic string            `json:"topic"`
	Data  map[string]string `json:"data,omitempty"`
}

// Publisher sends push messages.
type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

/*─────────────────────────────────────────────────────────────────────────────*
| NATS                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes JSON messages on push.<topic>.
type NATSPublisher struct {
	conn         natsConn
	defaultTopic string
}

func NewNATS(conn natsConn, defaultTopic string) *NATSPublisher {
	if defaultTopic == "" {
		defaultTopic = DefaultTopic
	}
	return &NATSPublisher{conn: conn, defaultTopic: defaultTopic}
}

// Subject returns the subject a topic is published on.
func Subject(topic string) string {
	return "push." + topic
}

func (p *NATSPublisher) Publish(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Topic == "" {
		m.Topic = p.defaultTopic
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(Subject(m.Topic), data); err != nil {
		return fmt.Errorf("push %s: %w", m.Topic, err)
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Log only                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// LogPublisher writes messages to the log. It is used when NATS is not configured.
type LogPublisher struct {
	log          *zap.Logger
	defaultTopic string
}

func NewLog(logger *zap.Logger, defaultTopic string) *LogPublisher {
	if defaultTopic == "" {
		defaultTopic = DefaultTopic
	}
	return &LogPublisher{log: logger, defaultTopic: defaultTopic}
}

func (p *LogPublisher) Publish(_ context.Context, m Message) error {
	if m.Topic == "" {
		m.Topic = p.defaultTopic
	}
	p.log.Info("push notification",
		zap.String("topic", m.Topic),
		zap.String("title", m.Title),
		zap.String("body", m.Body),
		zap.Any("data", m.Data))
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Messages                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func place(e models.Event) string {
	if s := strings.TrimSpace(e.Location.Address); s != "" {
		return s
	}
	return strings.TrimSpace(e.MeetingPoint)
}

// NewEvent announces a freshly created event.
func NewEvent(e models.Event, topic string, loc *time.Location) Message {
	icon := "⭐"
	if e.Type == models.EventDaily {
		icon = "🏃"
	}
	return Message{
		Title: fmt.Sprintf("%s Nouvel événement: %s", icon, e.Title),
		Body:  fmt.Sprintf("%s à %s - %s", e.StartsAt(loc).Format("02/01/2006"), e.Time, place(e)),
		Topic: topic,
		Data: map[string]string{
			"eventId": e.ID.Hex(),
			"type":    string(e.Type),
		},
	}
}

// Reminder warns that an event starts soon.
func Reminder(e models.Event, topic string) Message {
	return Message{
		Title: "⏰ Rappel: Événement dans 30 minutes!",
		Body:  fmt.Sprintf("%s à %s. Soyez prêt!", e.Title, place(e)),
		Topic: topic,
		Data: map[string]string{
			"eventId": e.ID.Hex(),
			"type":    "reminder",
		},
	}
}

// Test is the message sent from the "test notifications" action.
func Test(title, body, topic string, now time.Time) Message {
	if strings.TrimSpace(title) == "" {
		title = "Test Push Notification 🔔"
	}
	if strings.TrimSpace(body) == "" {
		body = "Cette notification arrive même si l'app est fermée!"
	}
	return Message{
		Title: title,
		Body:  body,
		Topic: topic,
		Data: map[string]string{
			"type":      "test",
			"timestamp": fmt.Sprint(now.UnixMilli()),
		},
	}
}
