package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	defaultProbeTimeout   = 2 * time.Second
	defaultCommandTimeout = time.Second
	scanBatchSize         = 500
)

// Options tunes a Cache.
type Options struct {
	// ProbeTimeout bounds the construction-time liveness check.
	ProbeTimeout time.Duration
	// CommandTimeout bounds every individual operation.
	CommandTimeout time.Duration
	Logger         hclog.Logger
	// OnError is called after a backend failure has been absorbed.
	OnError func(op string, err error)
}

// Cache is a degradable wrapper around a Backend. It is safe for concurrent use
// and holds no mutable state after New.
type Cache struct {
	backend        Backend
	available      bool
	commandTimeout time.Duration
	logger         hclog.Logger
	onError        func(op string, err error)
}

// New probes backend once and returns a Cache whose availability is fixed by the
// outcome. A nil backend yields a permanently unavailable cache.
func New(ctx context.Context, backend Backend, opts Options) *Cache {
	c := &Cache{
		backend:        backend,
		commandTimeout: opts.CommandTimeout,
		logger:         opts.Logger,
		onError:        opts.OnError,
	}
	if c.commandTimeout <= 0 {
		c.commandTimeout = defaultCommandTimeout
	}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	if backend == nil {
		c.logger.Warn("no cache backend configured; snapshots and revocation disabled")
		return c
	}

	probeTimeout := opts.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := backend.Ping(probeCtx); err != nil {
		c.logger.Warn("cache unavailable at startup; running degraded, revocation is not enforced", "error", err)
		return c
	}

	c.available = true
	c.logger.Info("cache available")
	return c
}

// Disabled returns a cache that was never connected.
func Disabled(logger hclog.Logger) *Cache {
	return New(context.Background(), nil, Options{Logger: logger})
}

// Available reports the construction-time probe result.
func (c *Cache) Available() bool {
	return c != nil && c.available
}

// Ping measures backend latency without changing availability.
func (c *Cache) Ping(ctx context.Context) (time.Duration, error) {
	if c == nil || c.backend == nil {
		return 0, ErrBackendUnavailable
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	start := time.Now()
	err := c.backend.Ping(ctx)
	return time.Since(start), err
}

// Get returns the stored value and true, or nil and false on miss or failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Available() {
		return nil, false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.absorb("get", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores value. A non-positive ttl stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if !c.Available() {
		return false
	}
	if ttl < 0 {
		ttl = 0
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		c.absorb("set", err)
		return false
	}
	return true
}

// Delete removes key. It reports whether the command reached the backend, not
// whether the key existed, so repeated deletes are not failures.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if !c.Available() {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.backend.Delete(ctx, key); err != nil {
		c.absorb("delete", err)
		return false
	}
	return true
}

// Exists reports whether key is present; false on failure.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	if !c.Available() {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	ok, err := c.backend.Exists(ctx, key)
	if err != nil {
		c.absorb("exists", err)
		return false
	}
	return ok
}

// Increment atomically increments key and returns the new value.
func (c *Cache) Increment(ctx context.Context, key string) (int64, bool) {
	if !c.Available() {
		return 0, false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	n, err := c.backend.Incr(ctx, key)
	if err != nil {
		c.absorb("increment", err)
		return 0, false
	}
	return n, true
}

// Expire sets a TTL on an existing key. Non-positive ttl is a no-op.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	if !c.Available() || ttl <= 0 {
		return false
	}
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	ok, err := c.backend.Expire(ctx, key, ttl)
	if err != nil {
		c.absorb("expire", err)
		return false
	}
	return ok
}

// DeleteByPattern removes every key starting with prefix and returns how many
// were deleted. This walks the keyspace with SCAN and is meant for admin paths,
// not request hot paths.
func (c *Cache) DeleteByPattern(ctx context.Context, prefix string) int {
	if !c.Available() || prefix == "" {
		return 0
	}

	match := escapeGlob(prefix) + "*"
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.scan(ctx, cursor, match)
		if err != nil {
			c.absorb("scan", err)
			return deleted
		}
		if len(keys) > 0 {
			n, err := c.deleteMany(ctx, keys)
			if err != nil {
				c.absorb("delete", err)
				return deleted
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted
		}
	}
}

func (c *Cache) scan(ctx context.Context, cursor uint64, match string) ([]string, uint64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()
	return c.backend.Scan(ctx, cursor, match, scanBatchSize)
}

func (c *Cache) deleteMany(ctx context.Context, keys []string) (int64, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()
	return c.backend.Delete(ctx, keys...)
}

func (c *Cache) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, c.commandTimeout)
}

// absorb logs and reports a failure. Keys are left out of the log; login
// counter keys carry email addresses.
func (c *Cache) absorb(op string, err error) {
	c.logger.Warn("cache operation failed; treating as miss", "op", op, "error", err)
	if c.onError != nil {
		c.onError(op, err)
	}
}

func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
