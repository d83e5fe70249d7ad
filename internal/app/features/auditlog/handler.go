// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"go.uber.org/zap"
)

type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs the audit trail viewer. users is used to resolve
// actor and target names and may be nil.
func NewHandler(store *audit.Store, users *userstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  store,
		Users:  users,
		Log:    logger,
		ErrLog: errLog,
	}
}
