// internal/app/features/dashboard/handler.go
package dashboard

import (
	"errors"
	"net/http"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/sessionrouter"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB     *mongo.Database
	Users  *userstore.Store
	Groups *groupstore.Store
	Events *eventstore.Store
	Router *sessionrouter.Router
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, users *userstore.Store, groups *groupstore.Store, events *eventstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Users:  users,
		Groups: groups,
		Events: events,
		Router: sessionrouter.New(users, logger),
		ErrLog: errLog,
		Log:    logger,
	}
}

type response struct {
	sessionrouter.Decision
	Summary Summary `json:"summary"`
}

// ServeDashboard handles GET /dashboard. Anonymous callers get the guest
// dashboard; signed-in callers are re-resolved against the directory so a
// role change shows up on the next load.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	id := sessionrouter.Identity{}
	if u, ok := auth.CurrentUser(r); ok {
		id = sessionrouter.Identity{ID: u.ID, Email: u.Email}
	}

	dec, err := h.Router.Resolve(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, sessionrouter.ErrInactive):
		uierrors.WriteJSON(w, http.StatusForbidden, uierrors.Body{Error: auth.Message(auth.ErrDisabled)})
		return
	case errors.Is(err, sessionrouter.ErrUnknownUser):
		uierrors.WriteJSON(w, http.StatusUnauthorized, uierrors.Body{Error: auth.Message(auth.ErrUserNotFound)})
		return
	default:
		h.ErrLog.LogServerError(w, r, "resolve dashboard user", err, "A database error occurred.")
		return
	}

	sum, err := h.summarize(r.Context(), dec)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load dashboard summary", err, "A database error occurred.")
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, response{Decision: dec, Summary: sum})
}
