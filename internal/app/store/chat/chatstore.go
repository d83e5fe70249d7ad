// internal/app/store/chat/chatstore.go
package chatstore

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/htmlsanitize"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 500
	DefaultMaxLength    = 1000
)

type Store struct {
	c       *mongo.Collection
	hub     *streams.Hub
	log     *zap.Logger
	history int64
	maxLen  int
}

// New returns a chat store. Non-positive limits use the defaults.
func New(db *mongo.Database, hub *streams.Hub, logger *zap.Logger, historyLimit, maxLength int) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Store{
		c:       db.Collection("chat_messages"),
		hub:     hub,
		log:     logger,
		history: int64(historyLimit),
		maxLen:  maxLength,
	}
}

// Clean strips markup, trims and caps text to max runes.
func Clean(text string, max int) string {
	s := strings.TrimSpace(htmlsanitize.StripTags(text))
	if utf8.RuneCountInString(s) > max {
		s = strings.TrimSpace(string([]rune(s)[:max]))
	}
	return s
}

// Send stores a message. Text that is empty after cleaning is dropped and
// reported with sent=false and no error.
func (s *Store) Send(ctx context.Context, groupID, senderID primitive.ObjectID, senderName, text string) (msg models.ChatMessage, sent bool, err error) {
	text = Clean(text, s.maxLen)
	if text == "" {
		return models.ChatMessage{}, false, nil
	}
	msg = models.ChatMessage{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		SenderID:   senderID,
		SenderName: strings.TrimSpace(senderName),
		Text:       text,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.c.InsertOne(ctx, msg); err != nil {
		return models.ChatMessage{}, false, err
	}
	s.hub.Notify(streams.ChatKey(groupID))
	return msg, true, nil
}

// Recent returns the group's latest messages in ascending creation order,
// at most the configured history limit.
func (s *Store) Recent(ctx context.Context, groupID primitive.ObjectID) ([]models.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(s.history)
	out, err := s.find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Subscribe streams Recent for the group, reloaded after every send.
func (s *Store) Subscribe(ctx context.Context, groupID primitive.ObjectID) *streams.Subscription[[]models.ChatMessage] {
	return streams.Live(ctx, s.hub, func(ctx context.Context) ([]models.ChatMessage, error) {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		defer cancel()
		return s.Recent(ctx, groupID)
	}, s.log, streams.ChatKey(groupID))
}

// ListCreatedAfter returns the group's messages created strictly after t.
func (s *Store) ListCreatedAfter(ctx context.Context, groupID primitive.ObjectID, t time.Time) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"group_id": groupID, "created_at": bson.M{"$gt": t.UTC()}}, opts)
}

// DeleteGroup removes a group's history.
func (s *Store) DeleteGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	s.hub.Notify(streams.ChatKey(groupID))
	return res.DeletedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.ChatMessage, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ChatMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
