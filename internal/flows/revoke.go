package flows

import (
	"context"
	"time"
)

// RevokeDeps captures revocation dependencies. Authentic must check signature,
// issuer and audience; the remaining lifetime is only trusted after it passes.
type RevokeDeps struct {
	Authentic         func(string) bool
	RemainingLifetime func(string) time.Duration
	WriteMarker       func(context.Context, string, time.Duration) bool
}

// RevokeResult reports what the ledger write did. Remaining is zero when the
// token had nothing left to block. Forged is set when the token was not one of
// ours and nothing was written.
type RevokeResult struct {
	Remaining time.Duration
	Recorded  bool
	Forged    bool
}

// RunRevoke writes a marker that lives exactly as long as the token would.
func RunRevoke(ctx context.Context, tokenStr string, deps RevokeDeps) RevokeResult {
	if !deps.Authentic(tokenStr) {
		return RevokeResult{Forged: true}
	}
	remaining := deps.RemainingLifetime(tokenStr)
	if remaining <= 0 {
		return RevokeResult{}
	}
	return RevokeResult{
		Remaining: remaining,
		Recorded:  deps.WriteMarker(ctx, tokenStr, remaining),
	}
}
