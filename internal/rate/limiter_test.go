package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGate/cache"
)

func newTestLimiter(t *testing.T, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.New(context.Background(), cache.NewRedisBackend(client), cache.Options{})
	return New(c, Config{Prefix: "gg:", MaxLoginAttempts: max, LoginCooldown: time.Minute}), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l, mr := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: unexpected block: %v", i, err)
		}
		if err := l.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: unexpected limit: %v", i, err)
		}
	}
	if err := l.RecordFailure(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third failure should exhaust the window, got %v", err)
	}
	if err := l.CheckLogin(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check to block, got %v", err)
	}
	if err := l.CheckLogin(ctx, "other@b.com"); err != nil {
		t.Fatalf("other email should not be limited: %v", err)
	}

	if ttl := mr.TTL("gg:login:a@b.com"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected window ttl %v", ttl)
	}
	mr.FastForward(61 * time.Second)
	if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	_ = l.RecordFailure(ctx, "a@b.com")
	l.Reset(ctx, "a@b.com")
	if n := l.Attempts(ctx, "a@b.com"); n != 0 {
		t.Fatalf("attempts after reset = %d", n)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l, _ := newTestLimiter(t, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatalf("disabled limiter returned %v", err)
		}
	}
	if l.Attempts(ctx, "a@b.com") != 0 {
		t.Fatal("disabled limiter should not count")
	}
}

func TestLimiterFailsOpenWithoutCache(t *testing.T) {
	l := New(cache.Disabled(nil), Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatalf("unexpected limit with cache down: %v", err)
		}
		if err := l.CheckLogin(ctx, "a@b.com"); err != nil {
			t.Fatalf("unexpected block with cache down: %v", err)
		}
	}
}

// flakyCounter keeps counts in memory and fails every Expire.
type flakyCounter struct {
	counts  map[string]int64
	deleted []string
}

func (f *flakyCounter) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (f *flakyCounter) Increment(_ context.Context, key string) (int64, bool) {
	f.counts[key]++
	return f.counts[key], true
}

func (f *flakyCounter) Expire(context.Context, string, time.Duration) bool { return false }

func (f *flakyCounter) Delete(_ context.Context, key string) bool {
	delete(f.counts, key)
	f.deleted = append(f.deleted, key)
	return true
}

func TestLimiterDropsCounterWithoutWindow(t *testing.T) {
	store := &flakyCounter{counts: map[string]int64{}}
	l := New(store, Config{Prefix: "gg:", MaxLoginAttempts: 1, LoginCooldown: time.Minute})

	if err := l.RecordFailure(context.Background(), "a@b.com"); err != nil {
		t.Fatalf("RecordFailure = %v, want fail-open", err)
	}
	if _, ok := store.counts["gg:login:a@b.com"]; ok {
		t.Fatal("counter without a TTL was left behind")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "gg:login:a@b.com" {
		t.Fatalf("deleted = %v", store.deleted)
	}
}
