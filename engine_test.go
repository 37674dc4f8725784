package goGate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/snapshot"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(t, activeUser("u1"))
	token := h.issue(t, u)

	res, err := h.engine.Authenticate(context.Background(), token, AuthOptions{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	want := User{ID: "u1", Email: "u1@example.com", Name: "User u1", Role: "member", Verified: true, Active: true}
	if res.User != want {
		t.Fatalf("user = %+v, want %+v", res.User, want)
	}
	if res.TokenID == "" {
		t.Fatal("expected token id")
	}
	if !res.ExpiresAt.Equal(h.clock.Now().Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", res.ExpiresAt)
	}
	if res.NewToken != "" {
		t.Fatal("renewal was not requested")
	}
	if got := counter(h.engine, MetricAuthSuccess); got != 1 {
		t.Fatalf("auth success counter = %d", got)
	}
}

func TestAuthenticateServesFromSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, activeUser("u1"))
	token := h.issue(t, u)

	for i := 0; i < 3; i++ {
		if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
			t.Fatalf("Authenticate #%d: %v", i, err)
		}
	}
	if got := h.dir.byID.Load(); got != 0 {
		t.Fatalf("directory reads = %d, want 0 (Issue warms the snapshot)", got)
	}

	if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatalf("InvalidateUser: %v", err)
	}
	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
		t.Fatalf("Authenticate after invalidate: %v", err)
	}
	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
		t.Fatalf("Authenticate after repopulate: %v", err)
	}
	if got := h.dir.byID.Load(); got != 1 {
		t.Fatalf("directory reads = %d, want 1", got)
	}
	if !h.mr.Exists("test:user:u1") {
		t.Fatal("snapshot was not repopulated")
	}
}

func TestRevokedTokenNeverReachesDirectory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.addUser(t, activeUser("u1"))
	token := h.issue(t, u)

	if err := h.engine.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	h.engine.FlushSnapshots(ctx)

	_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
	if got := h.dir.byID.Load(); got != 0 {
		t.Fatalf("directory reads = %d, want 0", got)
	}
	if got := counter(h.engine, MetricAuthRevoked); got != 1 {
		t.Fatalf("revoked counter = %d", got)
	}
}

func TestRevocationMarkerExpiresWithToken(t *testing.T) {
	h := newHarness(t, withConfig(func(c *Config) {
		c.JWT.Lifetime = 10 * time.Second
		c.Gate.RenewalWindow = 0
	}))
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	h.clock.Advance(5 * time.Second)
	if err := h.engine.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	key := h.revokedKey(token)
	if !h.mr.Exists(key) {
		t.Fatalf("marker %s not written", key)
	}
	if ttl := h.mr.TTL(key); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("marker TTL = %v, want (0, 5s]", ttl)
	}
	if strings.Contains(key, token) {
		t.Fatal("marker key must not embed the raw credential")
	}

	h.mr.FastForward(6 * time.Second)
	if h.mr.Exists(key) {
		t.Fatal("marker outlived the credential")
	}
}

func TestRevokeSkipsSpentTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	h.clock.Advance(2 * time.Hour)
	if err := h.engine.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke expired: %v", err)
	}
	if err := h.engine.Revoke(ctx, "not-a-token"); err != nil {
		t.Fatalf("Revoke garbage: %v", err)
	}
	if err := h.engine.Revoke(ctx, ""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("Revoke empty: %v", err)
	}

	for _, k := range h.mr.Keys() {
		if strings.HasPrefix(k, "test:revoked:") {
			t.Fatalf("unexpected marker %s", k)
		}
	}
	if got := counter(h.engine, MetricRevocationSkipped); got != 1 {
		t.Fatalf("skipped counter = %d, want 1", got)
	}
}

func signForeign(t *testing.T, secret []byte, issuer, audience string) string {
	t.Helper()
	claims := gjwt.MapClaims{
		"sub": "u1",
		"iss": issuer,
		"aud": []string{audience},
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(50 * 365 * 24 * time.Hour).Unix(),
		"jti": "forged",
	}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestRevokeAndLogoutIgnoreForgedTokens(t *testing.T) {
	cfg := testConfig()
	cases := map[string]string{
		"wrong secret":   signForeign(t, []byte("another-secret-another-secret-32"), cfg.JWT.Issuer, cfg.JWT.Audience),
		"foreign issuer": signForeign(t, testSecret, "someone-else", cfg.JWT.Audience),
		"foreign aud":    signForeign(t, testSecret, cfg.JWT.Issuer, "other-api"),
	}

	for name, forged := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.issue(t, h.addUser(t, activeUser("u1")))

			if err := h.engine.Revoke(ctx, forged); err != nil {
				t.Fatalf("Revoke: %v", err)
			}
			if err := h.engine.Logout(ctx, forged); err != nil {
				t.Fatalf("Logout: %v", err)
			}

			if h.mr.Exists(h.revokedKey(forged)) {
				t.Fatal("marker written for a token this engine never signed")
			}
			if !h.mr.Exists("test:user:u1") {
				t.Fatal("forged logout evicted the snapshot")
			}
			if got := counter(h.engine, MetricLogout); got != 0 {
				t.Fatalf("logout counter = %d", got)
			}
		})
	}
}

func TestLogoutAcceptsExpiredTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	h.clock.Advance(2 * time.Hour)
	if err := h.engine.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if h.mr.Exists("test:user:u1") {
		t.Fatal("expired but authentic token should still log out")
	}
	if h.mr.Exists(h.revokedKey(token)) {
		t.Fatal("spent token needs no marker")
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	for i := 0; i < 2; i++ {
		if err := h.engine.Revoke(ctx, token); err != nil {
			t.Fatalf("Revoke #%d: %v", i, err)
		}
	}
	if !h.engine.IsRevoked(ctx, token) {
		t.Fatal("expected token revoked")
	}
}

func TestAuthenticateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.engine.Authenticate(ctx, "", AuthOptions{})
		if !errors.Is(err, ErrTokenRequired) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))
		h.clock.Advance(time.Hour + time.Second)
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		if !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("tampered", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))
		parts := strings.Split(token, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err := h.engine.Authenticate(ctx, strings.Join(parts, "."), AuthOptions{})
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("foreign issuer", func(t *testing.T) {
		h := newHarness(t)
		other := newHarness(t, withConfig(func(c *Config) { c.JWT.Issuer = "someone-else" }))
		token := other.issue(t, other.addUser(t, activeUser("u1")))
		h.addUser(t, activeUser("u1"))
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		if !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("user removed", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))
		h.dir.Remove("u1")
		if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("deactivated", func(t *testing.T) {
		h := newHarness(t)
		u := h.addUser(t, activeUser("u1"))
		token := h.issue(t, u)
		u.Active = false
		h.addUser(t, u)
		if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		if !errors.Is(err, ErrAccountDeactivated) {
			t.Fatalf("err = %v", err)
		}
		if h.mr.Exists("test:user:u1") {
			t.Fatal("inactive users must not be cached")
		}
	})

	t.Run("directory down", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))
		if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
		h.dir.err = errDirectoryDown
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		if !errors.Is(err, ErrDirectoryUnavailable) {
			t.Fatalf("err = %v", err)
		}
		rej, ok := RejectionOf(err)
		if !ok || rej.Status != http.StatusServiceUnavailable {
			t.Fatalf("rejection = %+v", rej)
		}
		if strings.Contains(rej.Message, "refused") {
			t.Fatal("rejection leaked internal detail")
		}
	})
}

func TestRenewalRevokesPresentedToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	h.clock.Advance(40 * time.Minute)
	res, err := h.engine.Authenticate(ctx, token, AuthOptions{Renew: true})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.NewToken == "" || res.NewToken == token {
		t.Fatalf("expected a fresh token, got %q", res.NewToken)
	}
	if !h.engine.IsRevoked(ctx, token) {
		t.Fatal("renewed token must be revoked")
	}

	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("old token err = %v", err)
	}
	renewed, err := h.engine.Authenticate(ctx, res.NewToken, AuthOptions{Renew: true})
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if renewed.NewToken != "" {
		t.Fatal("fresh token must not renew again")
	}
	if !renewed.ExpiresAt.Equal(h.clock.Now().Add(time.Hour)) {
		t.Fatalf("renewed ExpiresAt = %v", renewed.ExpiresAt)
	}
	if got := counter(h.engine, MetricRenewalSuccess); got != 1 {
		t.Fatalf("renewal counter = %d", got)
	}
}

func TestRenewalOnlyInsideWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	h.clock.Advance(10 * time.Minute)
	res, err := h.engine.Authenticate(ctx, token, AuthOptions{Renew: true})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.NewToken != "" {
		t.Fatal("token outside the renewal window was renewed")
	}

	h.clock.Advance(40 * time.Minute)
	res, err = h.engine.Authenticate(ctx, token, AuthOptions{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if res.NewToken != "" {
		t.Fatal("renewal without Renew option")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	if !h.mr.Exists("test:user:u1") {
		t.Fatal("expected warmed snapshot")
	}
	for i := 0; i < 2; i++ {
		if err := h.engine.Logout(ctx, token); err != nil {
			t.Fatalf("Logout #%d: %v", i, err)
		}
	}
	if h.mr.Exists("test:user:u1") {
		t.Fatal("logout must drop the snapshot")
	}
	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v", err)
	}
	if err := h.engine.Logout(ctx, ""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("empty logout err = %v", err)
	}
	if got := counter(h.engine, MetricLogout); got != 2 {
		t.Fatalf("logout counter = %d", got)
	}
}

func TestDegradedCacheKeepsServing(t *testing.T) {
	ctx := context.Background()
	dir := &countingDirectory{Memory: directory.NewMemory(activeUser("u1"))}
	clock := newTestClock()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(unreachableRedis(t)).
		WithDirectory(dir).
		WithLogger(hclog.NewNullLogger()).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if engine.CacheAvailable() {
		t.Fatal("cache should be unavailable")
	}

	token, err := engine.Issue(ctx, User{ID: "u1", Email: "u1@example.com", Active: true})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
			t.Fatalf("Authenticate #%d: %v", i, err)
		}
	}
	if got := dir.byID.Load(); got != 2 {
		t.Fatalf("directory reads = %d, want one per request", got)
	}

	if err := engine.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
		t.Fatalf("revocation is not enforced while degraded, got %v", err)
	}
	if got := counter(engine, MetricRevocationUnrecorded); got != 1 {
		t.Fatalf("unrecorded counter = %d", got)
	}

	report := engine.SecurityReport()
	if report.RevocationEnforced || len(report.Warnings) == 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRequireRevocationFailsBuild(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireRevocation = true

	_, err := New().
		WithConfig(cfg).
		WithRedis(unreachableRedis(t)).
		WithDirectory(directory.NewMemory()).
		WithLogger(hclog.NewNullLogger()).
		Build()
	if !errors.Is(err, ErrRevocationUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token refreshes", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))
		h.clock.Advance(2 * time.Hour)

		fresh, err := h.engine.Refresh(ctx, token)
		if err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if _, err := h.engine.Authenticate(ctx, fresh, AuthOptions{}); err != nil {
			t.Fatalf("Authenticate fresh: %v", err)
		}
	})

	t.Run("live token is revoked after refresh", func(t *testing.T) {
		h := newHarness(t)
		token := h.issue(t, h.addUser(t, activeUser("u1")))

		if _, err := h.engine.Refresh(ctx, token); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
		if !h.engine.IsRevoked(ctx, token) {
			t.Fatal("old token still usable")
		}
		if _, err := h.engine.Refresh(ctx, token); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("second refresh err = %v", err)
		}
	})

	t.Run("deactivated user keeps old token", func(t *testing.T) {
		h := newHarness(t)
		u := h.addUser(t, activeUser("u1"))
		token := h.issue(t, u)
		u.Active = false
		h.addUser(t, u)
		if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
			t.Fatal(err)
		}

		if _, err := h.engine.Refresh(ctx, token); !errors.Is(err, ErrAccountDeactivated) {
			t.Fatalf("err = %v", err)
		}
		if h.engine.IsRevoked(ctx, token) {
			t.Fatal("failed refresh must not revoke")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.engine.Refresh(ctx, "a.b.c"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v", err)
		}
		if _, err := h.engine.Refresh(ctx, ""); !errors.Is(err, ErrTokenRequired) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestConcurrentMissesShareDirectoryRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))
	if err := h.engine.InvalidateUser(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	h.dir.gate = make(chan struct{})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(h.dir.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
	}
	if got := h.dir.byID.Load(); got >= workers {
		t.Fatalf("directory reads = %d, expected concurrent misses to share", got)
	}
	if counter(h.engine, MetricDirectoryLookupShared) == 0 {
		t.Fatal("expected shared lookups to be counted")
	}
}

func TestCallerCancellationDoesNotAbortSharedLookup(t *testing.T) {
	h := newHarness(t)
	token := h.issue(t, h.addUser(t, activeUser("u1")))
	if err := h.engine.InvalidateUser(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	h.dir.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	patient := make(chan error, 1)
	go func() {
		_, err := h.engine.Authenticate(ctx, token, AuthOptions{})
		cancelled <- err
	}()
	go func() {
		_, err := h.engine.Authenticate(context.Background(), token, AuthOptions{})
		patient <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-cancelled; !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("cancelled caller err = %v", err)
	}

	close(h.dir.gate)
	if err := <-patient; err != nil {
		t.Fatalf("waiting caller err = %v", err)
	}
	if got := h.dir.byID.Load(); got != 1 {
		t.Fatalf("directory reads = %d, want 1", got)
	}
}

func TestCorruptSnapshotIsReplaced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	if err := h.mr.Set("test:user:u1", "garbage"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got := h.dir.byID.Load(); got != 1 {
		t.Fatalf("directory reads = %d, want 1", got)
	}

	raw, err := h.mr.Get("test:user:u1")
	if err != nil {
		t.Fatal(err)
	}
	snap, err := snapshot.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("snapshot not rewritten: %v", err)
	}
	if snap.ID != "u1" || snap.CachedAt != h.clock.Now().Unix() {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestIssueValidatesUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.Issue(ctx, User{Active: true}); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("empty id err = %v", err)
	}
	if _, err := h.engine.Issue(ctx, User{ID: "u1"}); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("inactive err = %v", err)
	}
}

func TestBuilder(t *testing.T) {
	t.Run("directory required", func(t *testing.T) {
		_, err := New().WithConfig(testConfig()).WithLogger(hclog.NewNullLogger()).Build()
		if !errors.Is(err, ErrDirectoryRequired) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New().WithDirectory(directory.NewMemory()).Build()
		if err == nil || !strings.Contains(err.Error(), "invalid config") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("single use", func(t *testing.T) {
		b := New().
			WithConfig(testConfig()).
			WithDirectory(directory.NewMemory()).
			WithLogger(hclog.NewNullLogger())
		e, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		defer e.Close()
		if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
			t.Fatalf("second Build err = %v", err)
		}
	})

	t.Run("without password login", func(t *testing.T) {
		h := newHarness(t, withBuilder(func(b *Builder) { b.WithoutPasswordLogin() }))
		if _, err := h.engine.Login(context.Background(), "a@example.com", "password1"); !errors.Is(err, ErrEngineNotReady) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	status := h.engine.Health(context.Background())
	if !status.CacheAvailable || !status.CacheReachable {
		t.Fatalf("status = %+v", status)
	}

	h.mr.SetError("LOADING dataset in memory")
	defer h.mr.SetError("")
	status = h.engine.Health(context.Background())
	if !status.CacheAvailable || status.CacheReachable {
		t.Fatalf("status after outage = %+v", status)
	}
}

func TestSecurityReportHealthy(t *testing.T) {
	h := newHarness(t)
	r := h.engine.SecurityReport()
	if !r.RevocationEnforced || !r.RateLimitingActive {
		t.Fatalf("report = %+v", r)
	}
	if r.SigningAlgorithm != "hs256" || r.TokenLifetime != time.Hour {
		t.Fatalf("report = %+v", r)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("warnings = %v", r.Warnings)
	}
}

func TestAuditEvents(t *testing.T) {
	sink := NewChannelSink(16)
	h := newHarness(t,
		withConfig(func(c *Config) { c.Audit.Enabled = true }),
		withBuilder(func(b *Builder) { b.WithAuditSink(sink) }),
	)
	token := h.issue(t, h.addUser(t, activeUser("u1")))

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	if err := h.engine.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := h.engine.Authenticate(ctx, token, AuthOptions{}); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("err = %v", err)
	}

	want := []string{auditEventTokenIssued, auditEventLogout, auditEventAuthRejected}
	for _, eventType := range want {
		select {
		case ev := <-sink.Events():
			if ev.EventType != eventType {
				t.Fatalf("event = %s, want %s", ev.EventType, eventType)
			}
			if eventType == auditEventLogout && (ev.UserID != "u1" || ev.IP != "203.0.113.7") {
				t.Fatalf("logout event = %+v", ev)
			}
			if eventType == auditEventAuthRejected && ev.Error != "token_revoked" {
				t.Fatalf("rejection event error = %q", ev.Error)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", eventType)
		}
	}
}
