package rate

import (
	"context"
	"strconv"
	"time"
)

// Counter is the subset of the cache the limiter needs. Every method degrades
// to a miss instead of failing.
type Counter interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Increment(ctx context.Context, key string) (int64, bool)
	Expire(ctx context.Context, key string, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
}

// Config holds limiter tuning. MaxLoginAttempts <= 0 disables limiting.
type Config struct {
	Prefix           string
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

// Limiter counts failed logins per email.
type Limiter struct {
	store  Counter
	config Config
}

// New creates a Limiter over store.
func New(store Counter, cfg Config) *Limiter {
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// Enabled reports whether a budget is configured.
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && l.config.MaxLoginAttempts > 0 && l.config.LoginCooldown > 0
}

// CheckLogin returns ErrRateLimited when the email has used up its window.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if !l.Enabled() {
		return nil
	}
	if l.Attempts(ctx, email) >= l.config.MaxLoginAttempts {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure counts one failed attempt. It returns ErrRateLimited when this
// attempt exhausted the window.
func (l *Limiter) RecordFailure(ctx context.Context, email string) error {
	if !l.Enabled() {
		return nil
	}
	key := l.loginKey(email)
	count, ok := l.store.Increment(ctx, key)
	if !ok {
		return nil
	}

	// Fixed window: TTL is set only on the first hit. A counter that failed to
	// get one would never reset, so it is dropped and the attempt goes uncounted.
	if count == 1 && !l.store.Expire(ctx, key, l.config.LoginCooldown) {
		l.store.Delete(ctx, key)
		return nil
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, email string) {
	if !l.Enabled() {
		return
	}
	l.store.Delete(ctx, l.loginKey(email))
}

// Attempts returns the failed attempts in the current window. Missing or
// unreadable counters count as zero.
func (l *Limiter) Attempts(ctx context.Context, email string) int {
	if l == nil || l.store == nil {
		return 0
	}
	raw, ok := l.store.Get(ctx, l.loginKey(email))
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return int(n)
}

func (l *Limiter) loginKey(email string) string {
	return l.config.Prefix + "login:" + email
}
