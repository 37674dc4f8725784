package flows

import (
	"context"

	"github.com/MrEthical07/goGate/jwt"
)

// RenewDeps captures silent-renewal dependencies.
type RenewDeps struct {
	Refresh func(string) (string, *jwt.IdentityClaims, error)
	Revoke  func(context.Context, string) RevokeResult
}

// RenewResult carries the replacement token, or Err when none was issued.
type RenewResult struct {
	Token  string
	Claims *jwt.IdentityClaims
	Old    RevokeResult
	Err    error
}

// RunRenew issues the replacement before revoking the old token, so a failed
// issue never leaves the caller with nothing valid.
func RunRenew(ctx context.Context, oldToken string, deps RenewDeps) RenewResult {
	token, claims, err := deps.Refresh(oldToken)
	if err != nil {
		return RenewResult{Err: err}
	}
	return RenewResult{
		Token:  token,
		Claims: claims,
		Old:    deps.Revoke(ctx, oldToken),
	}
}
