// internal/app/features/login/handler.go
package login

// Two sign-in forms share one flow:
//   - email + password: the credential store checks the secret directly.
//   - full name + 3-digit PIN: the name is resolved to candidate users and
//     each candidate's email is tried with the PIN-derived secret.
// Both end in the session router so the response carries the dashboard.

import (
	"context"
	"errors"
	"net/http"
	"time"

	uierrors "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/inputval"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/ratelimit"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/sessionrouter"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Users      *userstore.Store
	Creds      *credentialstore.Store
	Logins     *loginstore.Store
	Router     *sessionrouter.Router
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(
	users *userstore.Store,
	creds *credentialstore.Store,
	logins *loginstore.Store,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      users,
		Creds:      creds,
		Logins:     logins,
		Router:     sessionrouter.New(users, logger),
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		AuditLog:   audit,
		Metrics:    m,
		ErrLog:     errLog,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Payloads                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

type passwordInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type pinInput struct {
	Name string `json:"name" validate:"required,max=120" label:"Full name"`
	PIN  string `json:"pin" validate:"required,pin" label:"PIN"`
}

type signInResponse struct {
	sessionrouter.Decision
	Redirect string `json:"redirect"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	var in passwordInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	if !h.allow(w, r, models.LoginPassword, in.Email) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	userID, err := h.Creds.Verify(ctx, in.Email, in.Password)
	switch {
	case err == nil:
	case errors.Is(err, credentialstore.ErrNotFound):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, models.LoginPassword, in.Email)
		h.fail(w, models.LoginPassword, auth.ErrUserNotFound)
		return
	case errors.Is(err, credentialstore.ErrWrongCredential):
		h.AuditLog.LoginFailedWrongSecret(ctx, r, nil, models.LoginPassword, in.Email)
		h.fail(w, models.LoginPassword, auth.ErrWrongCredential)
		return
	default:
		h.Metrics.Login(models.LoginPassword, err)
		h.ErrLog.LogServerError(w, r, "verify credential", err, auth.Message(err))
		return
	}

	h.complete(w, r, sessionrouter.Identity{ID: userID.Hex(), Email: in.Email}, models.LoginPassword, in.Email)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login/pin                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePIN(w http.ResponseWriter, r *http.Request) {
	var in pinInput
	if err := uierrors.DecodeJSON(r, &in); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode pin login body", err, "Invalid request body.")
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		uierrors.RenderValidation(w, r, res)
		return
	}

	if !h.allow(w, r, models.LoginPIN, in.Name) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.ResolveLoginName(ctx, in.Name)
	switch {
	case err == nil:
	case errors.Is(err, userstore.ErrNotFound), errors.Is(err, userstore.ErrAmbiguousName):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, models.LoginPIN, in.Name)
		h.fail(w, models.LoginPIN, auth.ErrUserNotFound)
		return
	default:
		h.ErrLog.LogServerError(w, r, "resolve login name", err, auth.Message(err))
		return
	}

	userID, err := h.Creds.Verify(ctx, u.Email, credentialstore.DefaultSecret(in.PIN))
	switch {
	case err == nil:
	case errors.Is(err, credentialstore.ErrNotFound), errors.Is(err, credentialstore.ErrWrongCredential):
		h.AuditLog.LoginFailedWrongSecret(ctx, r, &u.ID, models.LoginPIN, in.Name)
		h.fail(w, models.LoginPIN, auth.ErrWrongCredential)
		return
	default:
		h.Metrics.Login(models.LoginPIN, err)
		h.ErrLog.LogServerError(w, r, "verify credential", err, auth.Message(err))
		return
	}

	h.complete(w, r, sessionrouter.Identity{ID: userID.Hex(), Email: u.Email}, models.LoginPIN, in.Name)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Shared steps                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// allow applies the IP and account throttles. It writes 429 and returns
// false when either is exhausted.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, method, account string) bool {
	if h.Limiter == nil {
		return true
	}
	if err := h.Limiter.Check(r, account); err != nil {
		h.AuditLog.LoginFailedRateLimit(r.Context(), r, account)
		h.Metrics.Login(method, err)
		uierrors.WriteJSON(w, http.StatusTooManyRequests, uierrors.Body{Error: auth.Message(err)})
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, method string, err error) {
	h.Metrics.Login(method, err)
	uierrors.WriteJSON(w, http.StatusUnauthorized, uierrors.Body{Error: auth.Message(err)})
}

// complete resolves the identity, records the sign-in and writes the
// session cookie.
func (h *Handler) complete(w http.ResponseWriter, r *http.Request, id sessionrouter.Identity, method, typed string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	dec, err := h.Router.Resolve(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, sessionrouter.ErrInactive):
		if u, lookupErr := h.Users.GetByEmail(ctx, id.Email); lookupErr == nil {
			h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, method)
		}
		h.Metrics.Login(method, auth.ErrDisabled)
		uierrors.WriteJSON(w, http.StatusForbidden, uierrors.Body{Error: auth.Message(auth.ErrDisabled)})
		return
	case errors.Is(err, sessionrouter.ErrUnknownUser):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, method, typed)
		h.fail(w, method, auth.ErrUserNotFound)
		return
	default:
		h.Metrics.Login(method, err)
		h.ErrLog.LogServerError(w, r, "resolve session", err, auth.Message(err))
		return
	}

	u := dec.User
	now := time.Now().UTC()
	if err := h.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		h.Log.Warn("touch last login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, u.ID, method); err != nil {
			h.Log.Warn("record login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}
	if h.Limiter != nil {
		h.Limiter.ResetAccount(ctx, typed)
	}

	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(u)); err != nil {
		h.Metrics.Login(method, err)
		h.ErrLog.LogServerError(w, r, "save session", err, "Unable to create session. Please try again.")
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, method, typed)
	h.Metrics.Login(method, nil)
	h.Log.Info("user signed in",
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", string(u.Role)),
		zap.String("method", method))

	uierrors.WriteJSON(w, http.StatusOK, signInResponse{
		Decision: dec,
		Redirect: "/dashboard",
	})
}
