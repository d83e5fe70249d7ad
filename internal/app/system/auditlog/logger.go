// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/moohaammed/maratech-2026-projet/internal/app/store/audit"
	"github.com/moohaammed/maratech-2026-projet/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration per category.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
type Config struct {
	Auth   string
	Admin  string
	Events string
}

// Sink persists audit events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via Sink) and structured logs (via zap).
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers under test can skip auditing.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryEvents:
		setting = l.config.Events
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if (setting == "all" || setting == "log") && l.zapLog != nil {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil && l.zapLog != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func base(r *http.Request, category, eventType string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authentication events                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginSuccess logs a successful sign-in. identity is the email or full name typed.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, identity string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.UserID = &userID
	e.Details = map[string]string{"method": method, "identity": identity}
	l.Log(ctx, e)
}

// LoginFailedUserNotFound logs a sign-in for an identity with no user.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, r *http.Request, method, identity string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedUserNotFound, false)
	e.FailureReason = "user not found"
	e.Details = map[string]string{"method": method, "identity": identity}
	l.Log(ctx, e)
}

// LoginFailedWrongSecret logs a wrong password or PIN.
func (l *Logger) LoginFailedWrongSecret(ctx context.Context, r *http.Request, userID *primitive.ObjectID, method, identity string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedWrongPassword, false)
	e.UserID = userID
	e.FailureReason = "wrong credential"
	e.Details = map[string]string{"method": method, "identity": identity}
	l.Log(ctx, e)
}

// LoginFailedUserDisabled logs a sign-in by an inactive account.
func (l *Logger) LoginFailedUserDisabled(ctx context.Context, r *http.Request, userID primitive.ObjectID, method string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedUserDisabled, false)
	e.UserID = &userID
	e.FailureReason = "account disabled"
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

// LoginFailedRateLimit logs a throttled sign-in.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, identity string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedRateLimit, false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"identity": identity}
	l.Log(ctx, e)
}

// Logout logs a sign-out. userIDStr may be empty or invalid.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	e := base(r, audit.CategoryAuth, audit.EventLogout, true)
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		e.UserID = &oid
	}
	l.Log(ctx, e)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin events                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, actorID primitive.ObjectID, userID, groupID *primitive.ObjectID, details map[string]string) {
	e := base(r, audit.CategoryAdmin, eventType, true)
	e.ActorID = &actorID
	e.UserID = userID
	e.GroupID = groupID
	e.Details = details
	l.Log(ctx, e)
}

// UserCreated logs a new directory user.
func (l *Logger) UserCreated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventUserCreated, actorID, &userID, nil, map[string]string{"role": role})
}

// UserUpdated logs a profile edit; fields is a comma-separated list.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, fields string) {
	l.admin(ctx, r, audit.EventUserUpdated, actorID, &userID, nil, map[string]string{"fields_changed": fields})
}

// UserRoleChanged logs a role change.
func (l *Logger) UserRoleChanged(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID, from, to string) {
	l.admin(ctx, r, audit.EventUserRoleChanged, actorID, &userID, nil, map[string]string{"from": from, "to": to})
}

// UserDeleted logs a user removal.
func (l *Logger) UserDeleted(ctx context.Context, r *http.Request, actorID, userID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventUserDeleted, actorID, &userID, nil, nil)
}

// GroupCreated logs a new running group.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventGroupCreated, actorID, nil, &groupID, map[string]string{"name": name})
}

// GroupUpdated logs a group edit.
func (l *Logger) GroupUpdated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, fields string) {
	l.admin(ctx, r, audit.EventGroupUpdated, actorID, nil, &groupID, map[string]string{"fields_changed": fields})
}

// GroupDeleted logs a group removal.
func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventGroupDeleted, actorID, nil, &groupID, map[string]string{"name": name})
}

// MemberAddedToGroup logs a membership assignment.
func (l *Logger) MemberAddedToGroup(ctx context.Context, r *http.Request, actorID, userID, groupID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventMemberAddedToGroup, actorID, &userID, &groupID, nil)
}

// MemberRemovedFromGroup logs a membership removal.
func (l *Logger) MemberRemovedFromGroup(ctx context.Context, r *http.Request, actorID, userID, groupID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventMemberRemovedFromGroup, actorID, &userID, &groupID, nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Club events                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Run logs a change to a scheduled run. eventType is one of the audit.EventRun* constants.
func (l *Logger) Run(ctx context.Context, r *http.Request, eventType string, actorID, runID primitive.ObjectID, groupID *primitive.ObjectID, title string) {
	e := base(r, audit.CategoryEvents, eventType, true)
	e.ActorID = &actorID
	e.GroupID = groupID
	e.Details = map[string]string{"event_id": runID.Hex(), "title": title}
	l.Log(ctx, e)
}
