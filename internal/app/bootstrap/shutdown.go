// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the reminder worker and closes NATS, Redis and MongoDB,
// in that order.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Reminders != nil {
		logger.Info("stopping event reminder worker")
		deps.Reminders.Stop()
	}
	if deps.NATS != nil {
		logger.Info("draining NATS connection")
		if err := deps.NATS.Drain(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
			deps.NATS.Close()
		}
	}

	var errs []error
	if deps.Redis != nil {
		logger.Info("closing Redis client")
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// closeDeps releases whatever ConnectDB opened before it failed.
func closeDeps(deps DBDeps, logger *zap.Logger) {
	if deps.NATS != nil {
		deps.NATS.Close()
	}
	if deps.Redis != nil {
		_ = deps.Redis.Close()
	}
	if deps.MongoClient != nil {
		if err := deps.MongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}
}
