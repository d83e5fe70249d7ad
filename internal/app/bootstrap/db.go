// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/indexes"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/streams"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/workers"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB and Redis, and NATS when configured, then
// builds the shared live-stream hub, the push publisher and the reminder
// worker. Anything already opened is closed again if a later step fails.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	clientOpts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("maratech").
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return deps, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	err = client.Ping(pingCtx, readpref.Primary())
	cancel()
	if err != nil {
		_ = client.Disconnect(context.Background())
		return deps, fmt.Errorf("mongo ping: %w", err)
	}
	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	redisOpts, err := redis.ParseURL(appCfg.RedisURL)
	if err != nil {
		closeDeps(deps, logger)
		return DBDeps{}, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	pingCtx, cancel = context.WithTimeout(ctx, timeouts.Ping())
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		_ = rdb.Close()
		closeDeps(deps, logger)
		return DBDeps{}, fmt.Errorf("redis ping: %w", err)
	}
	deps.Redis = rdb
	logger.Info("connected to Redis", zap.String("addr", redisOpts.Addr))

	deps.Hub = streams.NewHub(logger)
	if appCfg.NATSURL != "" {
		nc, err := nats.Connect(appCfg.NATSURL,
			nats.Name("maratech"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("NATS disconnected", zap.Error(err))
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
			}),
		)
		if err != nil {
			closeDeps(deps, logger)
			return DBDeps{}, fmt.Errorf("nats connect: %w", err)
		}
		deps.NATS = nc
		if err := deps.Hub.Attach(streams.NewNATSBridge(nc, "", logger)); err != nil {
			closeDeps(deps, logger)
			return DBDeps{}, fmt.Errorf("attach stream bridge: %w", err)
		}
		deps.Push = pushnotify.NewNATS(nc, appCfg.PushTopic)
		logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))
	} else {
		deps.Push = pushnotify.NewLog(logger, appCfg.PushTopic)
		logger.Info("nats_url not set; live streams are process-local and pushes are logged only")
	}

	deps.Reminders = workers.NewEventReminders(
		eventstore.New(deps.MongoDatabase, deps.Hub, logger),
		deps.Push,
		logger,
		workers.ReminderConfig{
			Interval:    appCfg.ReminderInterval,
			WindowStart: appCfg.ReminderWindowStart,
			WindowEnd:   appCfg.ReminderWindowEnd,
			Topic:       appCfg.PushTopic,
			Location:    clubLocation(appCfg, logger),
		},
	)

	return deps, nil
}

// EnsureSchema creates every collection's indexes. It is idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured")
	return nil
}

// clubLocation resolves the configured timezone, falling back to UTC.
func clubLocation(appCfg AppConfig, logger *zap.Logger) *time.Location {
	loc, err := time.LoadLocation(appCfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("timezone", appCfg.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}
