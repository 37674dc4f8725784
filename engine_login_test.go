package goGate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goGate/directory"
)

const testPassword = "correct horse battery"

func (h *harness) addPasswordUser(t *testing.T, u directory.User, plaintext string) directory.User {
	t.Helper()
	hash, err := h.engine.HashPassword(plaintext)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u.PasswordHash = hash
	return h.addUser(t, u)
}

func TestLoginIssuesWorkingCredential(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.addPasswordUser(t, activeUser("u1"), testPassword)

	res, err := h.engine.Login(ctx, "  U1@Example.COM ", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.ID != "u1" || res.NeedsRehash {
		t.Fatalf("result = %+v", res)
	}
	if !res.ExpiresAt.Equal(h.clock.Now().Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v", res.ExpiresAt)
	}
	if !h.mr.Exists("test:user:u1") {
		t.Fatal("login should warm the snapshot")
	}

	auth, err := h.engine.Authenticate(ctx, res.Token, AuthOptions{})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if auth.User.Email != "u1@example.com" {
		t.Fatalf("user = %+v", auth.User)
	}
	if got := counter(h.engine, MetricLoginSuccess); got != 1 {
		t.Fatalf("login success counter = %d", got)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong password counts and resets", func(t *testing.T) {
		h := newHarness(t)
		h.addPasswordUser(t, activeUser("u1"), testPassword)

		if _, err := h.engine.Login(ctx, "u1@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v", err)
		}
		if got := h.engine.LoginAttempts(ctx, "U1@example.com"); got != 1 {
			t.Fatalf("attempts = %d", got)
		}
		if _, err := h.engine.Login(ctx, "u1@example.com", testPassword); err != nil {
			t.Fatalf("Login: %v", err)
		}
		if got := h.engine.LoginAttempts(ctx, "u1@example.com"); got != 0 {
			t.Fatalf("attempts after success = %d", got)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.engine.Login(ctx, "nobody@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v", err)
		}
		if got := h.engine.LoginAttempts(ctx, "nobody@example.com"); got != 1 {
			t.Fatalf("attempts = %d", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.engine.Login(ctx, " ", testPassword); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v", err)
		}
		if _, err := h.engine.Login(ctx, "u1@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("deactivated", func(t *testing.T) {
		h := newHarness(t)
		u := activeUser("u1")
		u.Active = false
		h.addPasswordUser(t, u, testPassword)

		if _, err := h.engine.Login(ctx, "u1@example.com", testPassword); !errors.Is(err, ErrAccountDeactivated) {
			t.Fatalf("right password err = %v", err)
		}
		if _, err := h.engine.Login(ctx, "u1@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("wrong password err = %v", err)
		}
		if h.mr.Exists("test:user:u1") {
			t.Fatal("deactivated user cached")
		}
	})

	t.Run("directory down", func(t *testing.T) {
		h := newHarness(t)
		h.dir.err = errDirectoryDown
		if _, err := h.engine.Login(ctx, "u1@example.com", testPassword); !errors.Is(err, ErrDirectoryUnavailable) {
			t.Fatalf("err = %v", err)
		}
		if got := h.engine.LoginAttempts(ctx, "u1@example.com"); got != 0 {
			t.Fatalf("infrastructure failures must not count, attempts = %d", got)
		}
	})
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, withConfig(func(c *Config) {
		c.Login.MaxAttempts = 3
		c.Login.Cooldown = time.Minute
	}))
	ctx := context.Background()
	h.addPasswordUser(t, activeUser("u1"), testPassword)

	for i := 0; i < 2; i++ {
		if _, err := h.engine.Login(ctx, "u1@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i, err)
		}
	}
	if _, err := h.engine.Login(ctx, "u1@example.com", "wrong password"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("exhausting attempt err = %v", err)
	}
	if _, err := h.engine.Login(ctx, "u1@example.com", testPassword); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("correct password inside cooldown err = %v", err)
	}

	h.mr.FastForward(time.Minute + time.Second)
	if _, err := h.engine.Login(ctx, "u1@example.com", testPassword); err != nil {
		t.Fatalf("Login after cooldown: %v", err)
	}
	if got := counter(h.engine, MetricLoginRateLimited); got != 2 {
		t.Fatalf("rate limited counter = %d", got)
	}
}

func TestLoginFlagsWeakHash(t *testing.T) {
	weak := newHarness(t)
	hash, err := weak.engine.HashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, withConfig(func(c *Config) { c.Password.Time = 2 }))
	u := activeUser("u1")
	u.PasswordHash = hash
	h.addUser(t, u)

	res, err := h.engine.Login(context.Background(), "u1@example.com", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.NeedsRehash {
		t.Fatal("expected NeedsRehash for a hash with lower time cost")
	}
}
