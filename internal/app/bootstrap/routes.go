// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	accessibilityfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/accessibility"
	auditlogfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/auditlog"
	authgooglefeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/authgoogle"
	chatfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/chat"
	dashboardfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/dashboard"
	errorsfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/errors"
	eventsfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/events"
	geocodefeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/geocode"
	groupsfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/groups"
	healthfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/health"
	loginfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/login"
	logoutfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/logout"
	notificationsfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/notifications"
	profilefeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/profile"
	usersfeature "github.com/moohaammed/maratech-2026-projet/internal/app/features/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	chatstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/chat"
	credentialstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/credentials"
	eventstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/events"
	groupstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/groups"
	loginstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/logins"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/oauthstate"
	"github.com/moohaammed/maratech-2026-projet/internal/app/store/prefs"
	userstore "github.com/moohaammed/maratech-2026-projet/internal/app/store/users"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auditlog"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/devicecookie"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/geocode"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/metrics"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/notify"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the stores over the shared
// backends, applies the global middleware (CORS, metrics, device cookie,
// session user) and mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	devices, err := devicecookie.New(appCfg.DeviceCookieKey, "maratech-device", secure, logger)
	if err != nil {
		logger.Error("device cookie init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	loc := clubLocation(appCfg, logger)

	// Stores
	creds := credentialstore.New(db)
	users := userstore.New(db, creds, deps.Hub, logger)
	groups := groupstore.New(db, users, deps.Hub, logger)
	events := eventstore.New(db, deps.Hub, logger)
	chat := chatstore.New(db, deps.Hub, logger, appCfg.ChatHistoryLimit, appCfg.ChatMaxLength)
	logins := loginstore.New(db)
	devicePrefs := prefs.New(deps.Redis)
	auditStore := audit.New(db)

	// Role changes, disabled accounts and profile edits take effect on the
	// next request.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(users))

	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:   appCfg.AuditLogAuth,
		Admin:  appCfg.AuditLogAdmin,
		Events: appCfg.AuditLogEvents,
	})
	var m *metrics.Metrics
	if appCfg.MetricsEnabled {
		m = metrics.New()
	}
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(appCfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(m.Middleware)
	r.Use(devices.Middleware)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	// Authentication
	limiter := ratelimit.NewRedisLoginLimiter(deps.Redis)
	loginHandler := loginfeature.NewHandler(users, creds, logins, sessionMgr, limiter, auditLogger, m, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	if appCfg.GoogleClientID != "" {
		googleHandler := authgooglefeature.NewHandler(sessionMgr, auditLogger, m, oauthstate.New(deps.Redis), users, logins,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
		r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))
	} else {
		logger.Info("google_client_id not set; Google sign-in disabled")
	}

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Role-based dashboard
	dashboardHandler := dashboardfeature.NewHandler(db, users, groups, events, errLog, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

	// Directories
	usersHandler := usersfeature.NewHandler(users, auditLogger, m, errLog, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(users, creds, logins, auditLogger, errLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	groupsHandler := groupsfeature.NewHandler(groups, users, chat, auditLogger, m, errLog, logger)
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, sessionMgr))

	eventsHandler := eventsfeature.NewHandler(events, groups, deps.Push, appCfg.PushTopic, loc, auditLogger, m, errLog, logger)
	r.Mount("/events", eventsfeature.Routes(eventsHandler, sessionMgr))

	chatHandler := chatfeature.NewHandler(chat, m, errLog, logger)
	r.Mount("/chat", chatfeature.Routes(chatHandler, sessionMgr))

	// Per-device state
	gateway := notify.NewGateway(deps.Hub, events, chat, devicePrefs, loc, logger)
	notificationsHandler := notificationsfeature.NewHandler(gateway, devicePrefs, deps.Push, appCfg.PushTopic, m, errLog, logger)
	r.Mount("/notifications", notificationsfeature.Routes(notificationsHandler, sessionMgr))

	accessibilityHandler := accessibilityfeature.NewHandler(devicePrefs, errLog, logger)
	r.Mount("/accessibility", accessibilityfeature.Routes(accessibilityHandler))

	// Address lookup
	geo := geocode.New(geocode.Config{
		BaseURL:   appCfg.GeocodeBaseURL,
		Country:   appCfg.GeocodeCountry,
		Timeout:   appCfg.GeocodeTimeout,
		UserAgent: appCfg.GeocodeUserAgent,
	}, nil, logger)
	geocodeHandler := geocodefeature.NewHandler(geo, errLog, logger)
	r.Mount("/geocode", geocodefeature.Routes(geocodeHandler, sessionMgr))

	// Audit trail
	auditHandler := auditlogfeature.NewHandler(auditStore, users, errLog, logger)
	r.Mount("/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
