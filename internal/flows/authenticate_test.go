package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goGate/jwt"
)

var errNotFound = errors.New("not found")

type authStub struct {
	calls    []string
	revoked  bool
	verifyFn func(string) (*jwt.IdentityClaims, error)
	identity Identity
	resolve  error
	expiring bool
	renew    RenewResult
}

func (s *authStub) deps() AuthenticateDeps {
	return AuthenticateDeps{
		IsRevoked: func(context.Context, string) bool {
			s.calls = append(s.calls, "revoked")
			return s.revoked
		},
		Verify: func(tok string) (*jwt.IdentityClaims, error) {
			s.calls = append(s.calls, "verify")
			if s.verifyFn != nil {
				return s.verifyFn(tok)
			}
			return &jwt.IdentityClaims{RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}, nil
		},
		ResolveIdentity: func(_ context.Context, id string) (Identity, error) {
			s.calls = append(s.calls, "resolve:"+id)
			return s.identity, s.resolve
		},
		UserNotFound:  errNotFound,
		RenewalWindow: 30 * time.Minute,
		IsExpiringSoon: func(string, time.Duration) bool {
			s.calls = append(s.calls, "expiring")
			return s.expiring
		},
		Renew: func(context.Context, string) RenewResult {
			s.calls = append(s.calls, "renew")
			return s.renew
		},
	}
}

func TestRunAuthenticateNoToken(t *testing.T) {
	s := &authStub{}
	res := RunAuthenticate(context.Background(), "", false, s.deps())
	if res.Failure != AuthFailureNoToken || len(s.calls) != 0 {
		t.Fatalf("failure=%v calls=%v", res.Failure, s.calls)
	}
}

func TestRunAuthenticateRevokedNeverVerifies(t *testing.T) {
	s := &authStub{revoked: true}
	res := RunAuthenticate(context.Background(), "tok", true, s.deps())
	if res.Failure != AuthFailureRevoked {
		t.Fatalf("failure = %v", res.Failure)
	}
	if len(s.calls) != 1 || s.calls[0] != "revoked" {
		t.Fatalf("revoked token reached later stages: %v", s.calls)
	}
}

func TestRunAuthenticateMapsCredentialErrors(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want AuthFailureKind
	}{
		{&jwt.Error{Kind: jwt.KindExpired, Err: gjwt.ErrTokenExpired}, AuthFailureExpired},
		{&jwt.Error{Kind: jwt.KindInvalidSignature}, AuthFailureInvalidToken},
		{&jwt.Error{Kind: jwt.KindAudienceMismatch}, AuthFailureInvalidToken},
	} {
		err := tc.err
		s := &authStub{verifyFn: func(string) (*jwt.IdentityClaims, error) { return nil, err }}
		res := RunAuthenticate(context.Background(), "tok", false, s.deps())
		if res.Failure != tc.want {
			t.Fatalf("%v: failure = %v, want %v", err, res.Failure, tc.want)
		}
		for _, c := range s.calls {
			if c == "resolve:u1" {
				t.Fatal("invalid token reached identity resolution")
			}
		}
	}
}

func TestRunAuthenticateDirectoryOutcomes(t *testing.T) {
	s := &authStub{resolve: errNotFound}
	if res := RunAuthenticate(context.Background(), "tok", false, s.deps()); res.Failure != AuthFailureUserNotFound {
		t.Fatalf("failure = %v", res.Failure)
	}

	s = &authStub{resolve: errors.New("dial tcp: timeout")}
	if res := RunAuthenticate(context.Background(), "tok", false, s.deps()); res.Failure != AuthFailureDirectoryUnavailable {
		t.Fatalf("failure = %v", res.Failure)
	}

	s = &authStub{identity: Identity{UserID: "u1", Active: false}}
	if res := RunAuthenticate(context.Background(), "tok", false, s.deps()); res.Failure != AuthFailureDeactivated {
		t.Fatalf("failure = %v", res.Failure)
	}
}

func TestRunAuthenticateOrderAndRenewal(t *testing.T) {
	s := &authStub{
		identity: Identity{UserID: "u1", Active: true},
		expiring: true,
		renew:    RenewResult{Token: "new"},
	}
	res := RunAuthenticate(context.Background(), "tok", true, s.deps())
	if res.Failure != AuthFailureNone {
		t.Fatalf("failure = %v", res.Failure)
	}
	if res.Renewal == nil || res.Renewal.Token != "new" {
		t.Fatalf("renewal = %+v", res.Renewal)
	}

	want := []string{"revoked", "verify", "resolve:u1", "expiring", "renew"}
	if len(s.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", s.calls, want)
	}
	for i := range want {
		if s.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", s.calls, want)
		}
	}
}

func TestRunAuthenticateSkipsRenewalWhenNotRequested(t *testing.T) {
	s := &authStub{identity: Identity{UserID: "u1", Active: true}, expiring: true}
	res := RunAuthenticate(context.Background(), "tok", false, s.deps())
	if res.Renewal != nil {
		t.Fatal("renewal attempted without being requested")
	}

	s = &authStub{identity: Identity{UserID: "u1", Active: true}, expiring: false}
	res = RunAuthenticate(context.Background(), "tok", true, s.deps())
	if res.Renewal != nil {
		t.Fatal("renewal attempted for a fresh token")
	}
}
