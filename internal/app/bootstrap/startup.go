// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/waffle/config"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: timeout
// tuning, the main admin bootstrap and the reminder worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{Geocode: appCfg.GeocodeTimeout})

	if appCfg.MainAdminEmail != "" {
		users := userstore.New(deps.MongoDatabase, credentialstore.New(deps.MongoDatabase), deps.Hub, logger)
		ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
		err := ensureMainAdmin(ctx, users, appCfg.MainAdminEmail, appCfg.MainAdminName, appCfg.MainAdminCINLast3, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("main admin bootstrap: %w", err)
		}
	}

	if deps.Reminders != nil {
		deps.Reminders.Start()
	}
	return nil
}

// ensureMainAdmin makes sure the account for email exists, is active and
// holds the main admin role. A missing account is created with the
// default secret built from cinLast3.
func ensureMainAdmin(ctx context.Context, users *userstore.Store, email, name, cinLast3 string, logger *zap.Logger) error {
	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		created, err := users.Create(ctx, userstore.NewUser{
			FullName: name,
			Email:    email,
			CINLast3: cinLast3,
			Role:     models.RoleMainAdmin,
		})
		if err != nil {
			return err
		}
		logger.Info("main admin created", zap.String("user_id", created.ID.Hex()), zap.String("email", created.Email))
		return nil
	case err != nil:
		return err
	}

	if u.Role != models.RoleMainAdmin {
		role := models.RoleMainAdmin
		if _, err := users.Update(ctx, u.ID, userstore.Update{Role: &role}); err != nil {
			return err
		}
		logger.Info("promoted user to main admin",
			zap.String("user_id", u.ID.Hex()), zap.String("from", string(u.Role)))
	}
	if !u.IsActive {
		if err := users.SetActive(ctx, u.ID, true); err != nil {
			return err
		}
		logger.Info("re-enabled main admin", zap.String("user_id", u.ID.Hex()))
	}
	return nil
}
