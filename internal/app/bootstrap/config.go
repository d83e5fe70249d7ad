// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/geocode"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/pushnotify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the club service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: MARATECH_MONGO_URI, MARATECH_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "maratech", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "maratech-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},
	{Name: "device_cookie_key", Default: "dev-only-device-key-change-me-0123456789", Desc: "Signing key for the per-device cookie"},

	// Backends
	{Name: "redis_url", Default: "redis://localhost:6379/0", Desc: "Redis URL for per-device state, login throttling and OAuth state"},
	{Name: "nats_url", Default: "", Desc: "NATS URL; blank keeps live streams process-local and logs pushes instead of sending them"},

	// Push, geocoding, reminders
	{Name: "push_topic", Default: pushnotify.DefaultTopic, Desc: "Push notification topic"},
	{Name: "geocode_base_url", Default: geocode.DefaultBaseURL, Desc: "Nominatim base URL"},
	{Name: "geocode_country", Default: "tn", Desc: "Country code searches are restricted to"},
	{Name: "geocode_timeout", Default: "10s", Desc: "Geocoding request timeout"},
	{Name: "geocode_user_agent", Default: "maratech/1.0", Desc: "User-Agent sent to Nominatim"},
	{Name: "reminder_interval", Default: "5m", Desc: "How often the reminder worker scans"},
	{Name: "reminder_window_start", Default: "30m", Desc: "Reminder lookahead start"},
	{Name: "reminder_window_end", Default: "35m", Desc: "Reminder lookahead end"},

	// Chat
	{Name: "chat_history_limit", Default: 500, Desc: "Messages kept in a group chat snapshot"},
	{Name: "chat_max_length", Default: 1000, Desc: "Maximum chat message length in characters"},

	{Name: "timezone", Default: "Africa/Tunis", Desc: "IANA timezone of the club calendar"},

	// Main admin bootstrap
	{Name: "mainadmin_email", Default: "", Desc: "Email of the main admin (created or promoted on startup)"},
	{Name: "mainadmin_name", Default: "Main Admin", Desc: "Full name used when the main admin is created"},
	{Name: "mainadmin_cin_last3", Default: "", Desc: "Last three national id digits for the main admin's initial secret"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public base URL used for OAuth callbacks"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_events", Default: "all", Desc: "Club event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed by CORS (blank disables CORS)"},
	{Name: "metrics_enabled", Default: true, Desc: "Expose Prometheus metrics on /metrics"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, MARATECH_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "MARATECH", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),
		DeviceCookieKey:  appValues.String("device_cookie_key"),

		RedisURL: appValues.String("redis_url"),
		NATSURL:  appValues.String("nats_url"),

		PushTopic: appValues.String("push_topic"),

		GeocodeBaseURL:   appValues.String("geocode_base_url"),
		GeocodeCountry:   appValues.String("geocode_country"),
		GeocodeTimeout:   appValues.Duration("geocode_timeout", 10*time.Second),
		GeocodeUserAgent: appValues.String("geocode_user_agent"),

		ReminderInterval:    appValues.Duration("reminder_interval", 5*time.Minute),
		ReminderWindowStart: appValues.Duration("reminder_window_start", 30*time.Minute),
		ReminderWindowEnd:   appValues.Duration("reminder_window_end", 35*time.Minute),

		ChatHistoryLimit: appValues.Int("chat_history_limit"),
		ChatMaxLength:    appValues.Int("chat_max_length"),

		Timezone: appValues.String("timezone"),

		MainAdminEmail:    appValues.String("mainadmin_email"),
		MainAdminName:     appValues.String("mainadmin_name"),
		MainAdminCINLast3: appValues.String("mainadmin_cin_last3"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		BaseURL:            appValues.String("base_url"),

		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogEvents: appValues.String("audit_log_events"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
		MetricsEnabled:     appValues.Bool("metrics_enabled"),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Malformed backend URLs and impossible windows are caught here, before
// anything tries to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}
	if appCfg.ReminderWindowEnd <= appCfg.ReminderWindowStart {
		return fmt.Errorf("reminder_window_end (%s) must be after reminder_window_start (%s)",
			appCfg.ReminderWindowEnd, appCfg.ReminderWindowStart)
	}
	if appCfg.GeocodeTimeout <= 0 {
		return fmt.Errorf("geocode_timeout must be positive, got %s", appCfg.GeocodeTimeout)
	}
	if _, err := time.LoadLocation(appCfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", appCfg.Timezone, err)
	}
	if appCfg.MainAdminEmail != "" && appCfg.MainAdminCINLast3 == "" {
		logger.Warn("mainadmin_email is set without mainadmin_cin_last3; an existing account can be promoted but a new one cannot be created")
	}
	return nil
}
