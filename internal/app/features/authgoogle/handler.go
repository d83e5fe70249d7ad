// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/oauthstate"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/sessionrouter"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/timeouts"
	"github.com/moohaammed/maratech-2026-projet/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's v2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

const stateTTL = 10 * time.Minute

// Directory is the slice of the user store the callback needs.
type Directory interface {
	sessionrouter.Directory
	TouchLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Handler handles Google OAuth authentication. Google only proves the
// email address; the account must already exist in the directory.
type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Metrics    *metrics.Metrics
	StateStore *oauthstate.Store
	Users      Directory
	Logins     *loginstore.Store
	Router     *sessionrouter.Router

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://club.example/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's; tests point them at a
	// local server.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	m *metrics.Metrics,
	stateStore *oauthstate.Store,
	users Directory,
	logins *loginstore.Store,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Metrics:      m,
		StateStore:   stateStore,
		Users:        users,
		Logins:       logins,
		Router:       sessionrouter.New(users, logger),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		redirectToLogin(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		redirectToLogin(w, r, "internal")
		return
	}
	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if err := h.StateStore.Save(ctx, state, returnURL, stateTTL); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		redirectToLogin(w, r, "internal")
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		redirectToLogin(w, r, "google_denied")
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		redirectToLogin(w, r, "invalid_state")
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		redirectToLogin(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		redirectToLogin(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		redirectToLogin(w, r, "invalid_code")
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.Metrics.Login(models.LoginGoogle, err)
		redirectToLogin(w, r, "token_exchange")
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.Metrics.Login(models.LoginGoogle, err)
		redirectToLogin(w, r, "user_info")
		return
	}
	if info.Email == "" || !info.EmailVerified {
		h.Log.Info("Google OAuth: unverified email", zap.String("google_id", info.ID))
		h.Metrics.Login(models.LoginGoogle, auth.ErrUserNotFound)
		redirectToLogin(w, r, "no_account")
		return
	}

	dec, err := h.Router.Resolve(ctxTimeout, sessionrouter.Identity{Email: info.Email})
	switch {
	case err == nil:
	case errors.Is(err, sessionrouter.ErrUnknownUser):
		h.Log.Info("Google OAuth: user not found", zap.String("email", info.Email))
		h.AuditLog.LoginFailedUserNotFound(ctx, r, models.LoginGoogle, info.Email)
		h.Metrics.Login(models.LoginGoogle, auth.ErrUserNotFound)
		redirectToLogin(w, r, "no_account")
		return
	case errors.Is(err, sessionrouter.ErrInactive):
		if u, lookupErr := h.Users.GetByEmail(ctxTimeout, info.Email); lookupErr == nil {
			h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, models.LoginGoogle)
		}
		h.Metrics.Login(models.LoginGoogle, auth.ErrDisabled)
		redirectToLogin(w, r, "account_disabled")
		return
	default:
		h.Log.Error("failed to look up user", zap.Error(err))
		h.Metrics.Login(models.LoginGoogle, err)
		redirectToLogin(w, r, "internal")
		return
	}

	h.createSessionAndRedirect(w, r, dec.User, returnURL)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User info                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauth2Config().Client(ctx, token)

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session creation                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) createSessionAndRedirect(w http.ResponseWriter, r *http.Request, u *models.User, returnURL string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		h.Log.Warn("touch last login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
	}
	if h.Logins != nil {
		if err := h.Logins.CreateFrom(ctx, r, u.ID, models.LoginGoogle); err != nil {
			h.Log.Warn("record login failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}

	if err := h.SessionMgr.SignIn(w, r, userstore.SessionUser(u)); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.Metrics.Login(models.LoginGoogle, err)
		redirectToLogin(w, r, "session")
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, models.LoginGoogle, u.Email)
	h.Metrics.Login(models.LoginGoogle, nil)
	h.Log.Info("user logged in via Google OAuth", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/dashboard"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func redirectToLogin(w http.ResponseWriter, r *http.Request, errorCode string) {
	http.Redirect(w, r, "/login?error="+errorCode, http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
