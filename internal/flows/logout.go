package flows

import "context"

// LogoutDeps captures logout dependencies. Subject must authenticate the token
// but ignore expiry: logout works for tokens that already stopped verifying.
type LogoutDeps struct {
	Revoke       func(context.Context, string) RevokeResult
	Subject      func(string) (string, bool)
	DropSnapshot func(context.Context, string) bool
}

type LogoutResult struct {
	UserID          string
	Revoke          RevokeResult
	SnapshotDropped bool
}

// RunLogout revokes the token, then drops the owner's cached snapshot. Both
// steps are idempotent, and a token we did not sign touches neither.
func RunLogout(ctx context.Context, tokenStr string, deps LogoutDeps) LogoutResult {
	res := LogoutResult{Revoke: deps.Revoke(ctx, tokenStr)}
	if res.Revoke.Forged {
		return res
	}

	userID, ok := deps.Subject(tokenStr)
	if !ok || userID == "" {
		return res
	}
	res.UserID = userID
	res.SnapshotDropped = deps.DropSnapshot(ctx, userID)
	return res
}
