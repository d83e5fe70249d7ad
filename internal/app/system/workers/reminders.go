// internal/app/system/workers/reminders.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

// EventSource lists events whose start falls in a window.
type EventSource interface {
	ListStartingBetween(ctx context.Context, from, to time.Time, loc *time.Location) ([]models.Event, error)
}

// ReminderConfig controls the reminder scan.
type ReminderConfig struct {
	Interval    time.Duration // how often to scan (5m)
	WindowStart time.Duration // lookahead start (30m)
	WindowEnd   time.Duration // lookahead end (35m)
	Topic       string
	Location    *time.Location
}

// EventReminders is a background worker that pushes a reminder for every
// event starting within the lookahead window. Windows of consecutive scans
// can overlap, so a reminder may be sent more than once.
type EventReminders struct {
	events EventSource
	pub    pushnotify.Publisher
	log    *zap.Logger
	cfg    ReminderConfig
	now    func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewEventReminders creates a reminder worker. Zero config values fall
// back to 5m / 30m / 35m, the default topic and UTC.
func NewEventReminders(events EventSource, pub pushnotify.Publisher, logger *zap.Logger, cfg ReminderConfig) *EventReminders {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.WindowStart <= 0 {
		cfg.WindowStart = 30 * time.Minute
	}
	if cfg.WindowEnd <= cfg.WindowStart {
		cfg.WindowEnd = cfg.WindowStart + 5*time.Minute
	}
	if cfg.Topic == "" {
		cfg.Topic = pushnotify.DefaultTopic
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &EventReminders{
		events: events,
		pub:    pub,
		log:    logger,
		cfg:    cfg,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start begins the background scan loop.
func (w *EventReminders) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("event reminder worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("window_start", w.cfg.WindowStart),
		zap.Duration("window_end", w.cfg.WindowEnd))
}

// Stop signals the worker to stop and waits for it to finish. It is safe
// to call more than once.
func (w *EventReminders) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("event reminder worker stopped")
	})
}

func (w *EventReminders) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := w.Scan(ctx); err != nil {
				w.log.Error("reminder scan failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Scan publishes one reminder per event in the current window and returns
// how many were sent. A failed publish is logged and the scan continues.
func (w *EventReminders) Scan(ctx context.Context) (int, error) {
	now := w.now()
	from, to := now.Add(w.cfg.WindowStart), now.Add(w.cfg.WindowEnd)

	events, err := w.events.ListStartingBetween(ctx, from, to, w.cfg.Location)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, e := range events {
		if err := w.pub.Publish(ctx, pushnotify.Reminder(e, w.cfg.Topic)); err != nil {
			w.log.Warn("reminder not sent", zap.String("event_id", e.ID.Hex()), zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		w.log.Info("event reminders sent", zap.Int("count", sent))
	}
	return sent, nil
}
