// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Handler owns the self-service profile handlers.
type Handler struct {
	Users    *userstore.Store
	Creds    *credentialstore.Store
	Logins   *loginstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

func NewHandler(users *userstore.Store, creds *credentialstore.Store, logins *loginstore.Store, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Creds:    creds,
		Logins:   logins,
		AuditLog: audit,
		Log:      logger,
		ErrLog:   errLog,
	}
}
