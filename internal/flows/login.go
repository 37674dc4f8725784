package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/jwt"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureDeactivated
	LoginFailureDirectoryUnavailable
	LoginFailureIssue
)

// LoginDeps captures login dependencies.
type LoginDeps struct {
	CheckRate     func(context.Context, string) error
	RecordFailure func(context.Context, string) error
	ResetRate     func(context.Context, string)

	FindByEmail  func(context.Context, string) (directory.User, error)
	UserNotFound error

	VerifyPassword func(password, encodedHash string) (bool, error)
	// BurnPassword spends the same hashing cost as VerifyPassword so unknown
	// emails are not distinguishable by latency.
	BurnPassword func(password string)

	Issue         func(directory.User) (string, *jwt.IdentityClaims, error)
	StoreSnapshot func(context.Context, directory.User) bool
}

type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Token   string
	Claims  *jwt.IdentityClaims
	User    directory.User
}

// RunLogin authenticates email/password and issues a credential. The email is
// expected in normalized form.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if err := deps.CheckRate(ctx, email); err != nil {
		return LoginResult{Failure: LoginFailureRateLimited, Err: err}
	}

	user, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if deps.UserNotFound == nil || !errors.Is(err, deps.UserNotFound) {
			return LoginResult{Failure: LoginFailureDirectoryUnavailable, Err: err}
		}
		if deps.BurnPassword != nil {
			deps.BurnPassword(password)
		}
		return failedAttempt(ctx, email, deps)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return failedAttempt(ctx, email, deps)
	}

	// Checked after the password so deactivation does not leak account existence.
	if !user.Active {
		return LoginResult{Failure: LoginFailureDeactivated, User: user}
	}

	token, claims, err := deps.Issue(user)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: user}
	}

	deps.ResetRate(ctx, email)
	deps.StoreSnapshot(ctx, user)

	return LoginResult{
		Token:  token,
		Claims: claims,
		User:   user,
	}
}

func failedAttempt(ctx context.Context, email string, deps LoginDeps) LoginResult {
	if err := deps.RecordFailure(ctx, email); err != nil {
		return LoginResult{Failure: LoginFailureRateLimited, Err: err}
	}
	return LoginResult{Failure: LoginFailureInvalidCredentials}
}
