// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/moohaammed/maratech-2026-projet/internal/app/system/auth"
	"github.com/redis/go-redis/v9"
)

// Limiter counts attempts per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

/*─────────────────────────────────────────────────────────────────────────────*
| Redis limiter                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// RedisLimiter shares its counters between instances. Each key is an
// INCR counter that expires with its window.
type RedisLimiter struct {
	rdb      redis.Cmdable
	prefix   string
	limit    int
	duration time.Duration
}

// NewRedis creates a limiter allowing limit attempts per duration.
func NewRedis(rdb redis.Cmdable, prefix string, limit int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, duration: duration}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	// the window starts at the first attempt
	if n == 1 {
		if err := l.rdb.PExpire(ctx, k, l.duration).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: %w", key, err)
		}
	}
	return n <= int64(l.limit), nil
}

// Reset clears the counter for key.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.prefix+key).Err()
}

/*─────────────────────────────────────────────────────────────────────────────*
| In-memory limiter                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// MemoryLimiter is a process-local limiter used when Redis is not wired
// (tests, single-instance dev).
type MemoryLimiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// NewMemory creates a process-local limiter.
func NewMemory(limit int, duration time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
	}
}

// Allow checks if an attempt for key should be allowed.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}

	w, exists := l.windows[key]
	if !exists {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Reset clears the window for key.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login limiter                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginLimiter tracks attempts per client IP and per account key (email
// or full name for PIN sign-in).
type LoginLimiter struct {
	ip      Limiter
	account Limiter
}

// NewLoginLimiter combines an IP limiter and an account limiter.
func NewLoginLimiter(ip, account Limiter) *LoginLimiter {
	return &LoginLimiter{ip: ip, account: account}
}

// NewRedisLoginLimiter uses the defaults: 10 attempts per IP per minute and
// 5 attempts per account per 5 minutes.
func NewRedisLoginLimiter(rdb redis.Cmdable) *LoginLimiter {
	return NewLoginLimiter(
		NewRedis(rdb, "maratech:rl:ip:", 10, time.Minute),
		NewRedis(rdb, "maratech:rl:acct:", 5, 5*time.Minute),
	)
}

// Check records a sign-in attempt. It returns auth.ErrThrottled when either
// limit is exceeded. A limiter backend failure lets the attempt through.
func (ll *LoginLimiter) Check(r *http.Request, account string) error {
	ctx := r.Context()
	if ok, err := ll.ip.Allow(ctx, ClientIP(r)); err == nil && !ok {
		return auth.ErrThrottled
	}
	if key := accountKey(account); key != "" {
		if ok, err := ll.account.Allow(ctx, key); err == nil && !ok {
			return auth.ErrThrottled
		}
	}
	return nil
}

// ResetAccount clears the account window after a successful sign-in.
func (ll *LoginLimiter) ResetAccount(ctx context.Context, account string) {
	if key := accountKey(account); key != "" {
		_ = ll.account.Reset(ctx, key)
	}
}

func accountKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
