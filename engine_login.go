package goGate

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/internal/flows"
)

// Login checks email and password against the directory and issues a
// credential. Unknown emails, wrong passwords and deactivated accounts behind a
// wrong password all return ErrInvalidCredentials; a deactivated account with the
// right password returns ErrAccountDeactivated. Failed attempts count against a
// per-email window that is reset on success.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.jwtManager == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	email = directory.NormalizeEmail(email)
	if email == "" || password == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	res := flows.RunLogin(ctx, email, password, e.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, emailMetadata(email))
		return nil, ErrLoginRateLimited
	case flows.LoginFailureDeactivated:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, "", ErrAccountDeactivated, nil)
		return nil, ErrAccountDeactivated
	case flows.LoginFailureDirectoryUnavailable:
		e.metricInc(MetricDirectoryUnavailable)
		e.logger.Error("user directory lookup failed during login", "error", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrDirectoryUnavailable, emailMetadata(email))
		return nil, ErrDirectoryUnavailable
	case flows.LoginFailureIssue:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("issuing credential after login", "user_id", res.User.ID, "error", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, "", res.Err, nil)
		return nil, fmt.Errorf("issue credential: %w", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, emailMetadata(email))
		return nil, ErrInvalidCredentials
	}

	needsRehash, err := e.passwordHash.NeedsRehash(res.User.PasswordHash)
	if err != nil {
		needsRehash = false
	}

	out := &LoginResult{
		Token: res.Token,
		User: User{
			ID:       res.User.ID,
			Email:    res.User.Email,
			Name:     res.User.Name,
			Role:     res.User.Role,
			Verified: res.User.Verified,
			Active:   res.User.Active,
		},
		NeedsRehash: needsRehash,
	}
	var tokenID string
	if res.Claims != nil {
		tokenID = res.Claims.ID
		if res.Claims.ExpiresAt != nil {
			out.ExpiresAt = res.Claims.ExpiresAt.Time
		}
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, out.User.ID, tokenID, nil, nil)
	return out, nil
}

// HashPassword encodes plaintext with the engine's Argon2id parameters, for
// hosts that create or update directory records.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.passwordHash == nil {
		return "", ErrEngineNotReady
	}
	return e.passwordHash.Hash(plaintext)
}

// LoginAttempts returns the failed attempts recorded for email in the current
// window.
func (e *Engine) LoginAttempts(ctx context.Context, email string) int {
	if e == nil || e.limiter == nil {
		return 0
	}
	return e.limiter.Attempts(ctx, directory.NormalizeEmail(email))
}

func (e *Engine) loginDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		CheckRate:     e.limiter.CheckLogin,
		RecordFailure: e.limiter.RecordFailure,
		ResetRate:     e.limiter.Reset,
		FindByEmail: func(ctx context.Context, email string) (directory.User, error) {
			lookupCtx, cancel := context.WithTimeout(ctx, e.config.Gate.DirectoryTimeout)
			defer cancel()
			return e.directory.FindByEmail(lookupCtx, email)
		},
		UserNotFound: directory.ErrNotFound,
		Issue:        e.issueFor,
		StoreSnapshot: func(ctx context.Context, u directory.User) bool {
			return e.storeSnapshot(ctx, flows.SnapshotFromUser(u, e.now()))
		},
	}
	if e.passwordHash != nil {
		deps.VerifyPassword = e.passwordHash.Verify
		deps.BurnPassword = e.passwordHash.Burn
	}
	return deps
}

func emailMetadata(email string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"email": email}
	}
}
