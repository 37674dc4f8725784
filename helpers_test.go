package goGate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/internal"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingDirectory counts FindByID calls. With gate set, lookups block until
// the gate is closed.
type countingDirectory struct {
	*directory.Memory
	byID atomic.Int64
	gate chan struct{}
	err  error
}

func (d *countingDirectory) FindByID(ctx context.Context, id string) (directory.User, error) {
	d.byID.Add(1)
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return directory.User{}, ctx.Err()
		}
	}
	if d.err != nil {
		return directory.User{}, d.err
	}
	return d.Memory.FindByID(ctx, id)
}

func (d *countingDirectory) FindByEmail(ctx context.Context, email string) (directory.User, error) {
	if d.err != nil {
		return directory.User{}, d.err
	}
	return d.Memory.FindByEmail(ctx, email)
}

var errDirectoryDown = errors.New("connection refused")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.JWT.Issuer = "gogate-test"
	cfg.JWT.Audience = "gogate-test-api"
	cfg.JWT.Lifetime = time.Hour
	cfg.Gate.KeyPrefix = "test:"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type harness struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	dir    *countingDirectory
	clock  *testClock
}

type harnessOption func(*Config, *Builder)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		mr:    mr,
		rdb:   rdb,
		dir:   &countingDirectory{Memory: directory.NewMemory()},
		clock: newTestClock(),
	}

	cfg := testConfig()
	b := New().
		WithRedis(rdb).
		WithDirectory(h.dir).
		WithLogger(hclog.NewNullLogger()).
		WithClock(h.clock.Now)
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	h.engine = engine
	return h
}

func withConfig(fn func(*Config)) harnessOption {
	return func(cfg *Config, _ *Builder) { fn(cfg) }
}

func withBuilder(fn func(*Builder)) harnessOption {
	return func(_ *Config, b *Builder) { fn(b) }
}

// unreachableRedis returns a client pointed at a closed port.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func (h *harness) addUser(t *testing.T, u directory.User) directory.User {
	t.Helper()
	if err := h.dir.Put(u); err != nil {
		t.Fatalf("Put(%s): %v", u.ID, err)
	}
	return u
}

func (h *harness) issue(t *testing.T, u directory.User) string {
	t.Helper()
	token, err := h.engine.Issue(context.Background(), User{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Verified: u.Verified,
		Active:   u.Active,
	})
	if err != nil {
		t.Fatalf("Issue(%s): %v", u.ID, err)
	}
	return token
}

func (h *harness) revokedKey(token string) string {
	return "test:revoked:" + internal.TokenDigest(token)
}

func activeUser(id string) directory.User {
	return directory.User{
		ID:       id,
		Email:    id + "@example.com",
		Name:     "User " + id,
		Role:     "member",
		Verified: true,
		Active:   true,
	}
}

func counter(e *Engine, id MetricID) uint64 {
	return e.MetricsSnapshot().Counters[id]
}
