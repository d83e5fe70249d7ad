// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/workers"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Redis         *redis.Client

	// NATS is nil when nats_url is blank.
	NATS *nats.Conn

	// Hub carries change signals to live streams; bridged over NATS when
	// NATS is configured.
	Hub  *streams.Hub
	Push pushnotify.Publisher

	Reminders *workers.EventReminders
}
