package pushnotify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNATSPublisher(t *testing.T) {
	conn := &fakeConn{}
	p := pushnotify.NewNATS(conn, "")

	require.NoError(t, p.Publish(context.Background(), pushnotify.Message{Title: "Hi", Body: "there"}))
	require.NoError(t, p.Publish(context.Background(), pushnotify.Message{Title: "G", Topic: "group_x"}))

	assert.Equal(t, []string{"push.all_events", "push.group_x"}, conn.subjects)

	var m pushnotify.Message
	require.NoError(t, json.Unmarshal(conn.payloads[0], &m))
	assert.Equal(t, "Hi", m.Title)
	assert.Equal(t, pushnotify.DefaultTopic, m.Topic)
}

func TestNATSPublisher_Errors(t *testing.T) {
	conn := &fakeConn{err: errors.New("no responders")}
	p := pushnotify.NewNATS(conn, "")
	assert.Error(t, p.Publish(context.Background(), pushnotify.Message{Title: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pushnotify.NewNATS(&fakeConn{}, "").Publish(ctx, pushnotify.Message{}), context.Canceled)
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := pushnotify.NewLog(zap.New(core), "club")

	require.NoError(t, p.Publish(context.Background(), pushnotify.Message{Title: "Hello"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "club", logs.All()[0].ContextMap()["topic"])
}

func TestMessages(t *testing.T) {
	e := models.Event{
		ID:       primitive.NewObjectID(),
		Title:    "Sortie du Lac",
		Type:     models.EventDaily,
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Time:     "07:00",
		Location: models.Location{Address: "Lac 2"},
	}

	m := pushnotify.NewEvent(e, "all_events", time.UTC)
	assert.Equal(t, "🏃 Nouvel événement: Sortie du Lac", m.Title)
	assert.Equal(t, "14/03/2026 à 07:00 - Lac 2", m.Body)
	assert.Equal(t, e.ID.Hex(), m.Data["eventId"])

	r := pushnotify.Reminder(e, "all_events")
	assert.Equal(t, "Sortie du Lac à Lac 2. Soyez prêt!", r.Body)
	assert.Equal(t, "reminder", r.Data["type"])

	tm := pushnotify.Test("", "", "all_events", time.UnixMilli(42))
	assert.NotEmpty(t, tm.Title)
	assert.Equal(t, "42", tm.Data["timestamp"])
}
