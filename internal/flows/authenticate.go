package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/jwt"
)

// AuthFailureKind classifies authentication failures for root-level mapping.
type AuthFailureKind int

const (
	AuthFailureNone AuthFailureKind = iota
	AuthFailureNoToken
	AuthFailureRevoked
	AuthFailureExpired
	AuthFailureInvalidToken
	AuthFailureUserNotFound
	AuthFailureDeactivated
	AuthFailureDirectoryUnavailable
)

// Identity is the flow-local view of a resolved user.
type Identity struct {
	UserID   string
	Email    string
	Name     string
	Role     string
	Verified bool
	Active   bool
}

// AuthenticateDeps captures the gate's per-request dependencies.
type AuthenticateDeps struct {
	IsRevoked       func(context.Context, string) bool
	Verify          func(string) (*jwt.IdentityClaims, error)
	ResolveIdentity func(context.Context, string) (Identity, error)
	// UserNotFound is the sentinel ResolveIdentity returns for a missing user.
	UserNotFound   error
	RenewalWindow  time.Duration
	IsExpiringSoon func(string, time.Duration) bool
	Renew          func(context.Context, string) RenewResult
}

// AuthenticateResult returns either the resolved identity or a classified failure.
// Renewal is nil when no renewal was attempted.
type AuthenticateResult struct {
	Failure  AuthFailureKind
	Err      error
	Claims   *jwt.IdentityClaims
	Identity Identity
	Renewal  *RenewResult
}

// RunAuthenticate executes the gate state machine for one bearer token.
func RunAuthenticate(ctx context.Context, tokenStr string, renew bool, deps AuthenticateDeps) AuthenticateResult {
	if tokenStr == "" {
		return AuthenticateResult{Failure: AuthFailureNoToken}
	}

	if deps.IsRevoked(ctx, tokenStr) {
		return AuthenticateResult{Failure: AuthFailureRevoked}
	}

	claims, err := deps.Verify(tokenStr)
	if err != nil {
		if jwt.KindOf(err) == jwt.KindExpired {
			return AuthenticateResult{Failure: AuthFailureExpired, Err: err}
		}
		return AuthenticateResult{Failure: AuthFailureInvalidToken, Err: err}
	}

	identity, err := deps.ResolveIdentity(ctx, claims.Subject)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return AuthenticateResult{Failure: AuthFailureUserNotFound, Err: err, Claims: claims}
		}
		return AuthenticateResult{Failure: AuthFailureDirectoryUnavailable, Err: err, Claims: claims}
	}
	if !identity.Active {
		return AuthenticateResult{Failure: AuthFailureDeactivated, Claims: claims, Identity: identity}
	}

	res := AuthenticateResult{
		Claims:   claims,
		Identity: identity,
	}

	if renew && deps.Renew != nil && deps.IsExpiringSoon(tokenStr, deps.RenewalWindow) {
		renewal := deps.Renew(ctx, tokenStr)
		res.Renewal = &renewal
	}

	return res
}
