// internal/app/system/devicecookie/devicecookie.go
//
// Package devicecookie gives every browser a stable, signed device id.
// Per-device state (notification watermark, accessibility profile,
// notification permission) is keyed by this id, so it survives sign-out
// and works for visitors.
package devicecookie

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

const (
	DefaultName = "maratech-device"
	maxAge      = 365 * 24 * time.Hour
)

type ctxKey struct{}

type Manager struct {
	sc     *securecookie.SecureCookie
	name   string
	secure bool
	log    *zap.Logger
}

// New returns a manager signing cookies with key (32+ bytes recommended).
func New(key, name string, secure bool, logger *zap.Logger) (*Manager, error) {
	if key == "" {
		return nil, fmt.Errorf("device cookie key is empty")
	}
	if name == "" {
		name = DefaultName
	}
	sc := securecookie.New([]byte(key), nil)
	sc.MaxAge(int(maxAge.Seconds()))
	return &Manager{sc: sc, name: name, secure: secure, log: logger}, nil
}

// Read returns the device id carried by r, if the cookie is present and valid.
func (m *Manager) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.name)
	if err != nil {
		return "", false
	}
	var id string
	if err := m.sc.Decode(m.name, c.Value, &id); err != nil {
		m.log.Debug("device cookie rejected", zap.Error(err))
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// Issue mints a new device id and sets its cookie on w.
func (m *Manager) Issue(w http.ResponseWriter) (string, error) {
	id := uuid.NewString()
	v, err := m.sc.Encode(m.name, id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    v,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

// Middleware makes sure every request carries a device id in its context,
// issuing a cookie on first visit.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := m.Read(r)
		if !ok {
			var err error
			if id, err = m.Issue(w); err != nil {
				m.log.Error("device cookie not issued", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID stores a device id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// ID returns the request's device id, or "" when none was assigned.
func ID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
