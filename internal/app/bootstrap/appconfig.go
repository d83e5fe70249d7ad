// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging level); everything specific
// to the club service lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: maratech-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Session cookie lifetime

	// Per-device cookie used for the notification watermark and preferences
	DeviceCookieKey string

	// Backends
	RedisURL string // Per-device state, login throttling, OAuth state
	NATSURL  string // Blank keeps streams process-local and logs pushes

	// Push notifications
	PushTopic string

	// Geocoding (Nominatim)
	GeocodeBaseURL   string
	GeocodeCountry   string
	GeocodeTimeout   time.Duration
	GeocodeUserAgent string

	// Event reminders
	ReminderInterval    time.Duration
	ReminderWindowStart time.Duration
	ReminderWindowEnd   time.Duration

	// Chat
	ChatHistoryLimit int
	ChatMaxLength    int

	// Club calendar timezone (event dates and times are local to it)
	Timezone string

	// Main admin bootstrap
	MainAdminEmail    string
	MainAdminName     string
	MainAdminCINLast3 string

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string
	BaseURL            string // e.g. "https://club.example.tn"; used for the OAuth callback

	// Audit logging per category: all, db, log or off
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditLogEvents string

	// HTTP surface
	CORSAllowedOrigins []string
	MetricsEnabled     bool
}
