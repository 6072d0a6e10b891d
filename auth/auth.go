// Package auth implements password hashing, session tokens, and throttling of
// authentication attempts.
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// CheckPassword reports whether the password matches the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	) == nil
}

// NewSessionToken returns a new random session token.
func NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Limiter throttles attempts per key with a token bucket for each key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// limiterEntry is the token bucket of a key of the `Limiter`.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter returns a new instance of the `Limiter` that allows r attempts
// per second with bursts of burst for each key. Buckets idle for longer than
// idle are dropped by the `Limiter.Cleanup`.
func NewLimiter(r float64, burst int, idle time.Duration) *Limiter {
	return &Limiter{
		limiters: map[string]*limiterEntry{},
		rate:     rate.Limit(r),
		burst:    max(burst, 1),
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether an attempt for the key may happen now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}

	e.lastSeen = now

	return e.limiter.AllowN(now, 1)
}

// Cleanup drops the buckets that have been idle for too long.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
}

// Len returns the number of keys tracked by the l.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
