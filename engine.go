package goGate

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goGate/cache"
	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/internal"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/jwt"
	"github.com/MrEthical07/goGate/password"
)

// Engine is the session gate. It is immutable after Build and safe for
// concurrent use; the only shared mutable state is the external cache.
type Engine struct {
	config       Config
	logger       hclog.Logger
	jwtManager   *jwt.Manager
	passwordHash *password.Argon2
	directory    directory.Directory
	cache        *cache.Cache
	ownedRedis   *redis.Client
	limiter      *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	now          func() time.Time
	lookups      singleflight.Group
	flows        flows.Deps
}

// Close flushes pending audit events and closes a Redis client the engine
// dialed itself.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	e.closeOwned()
}

func (e *Engine) closeOwned() {
	if e.ownedRedis != nil {
		if err := e.ownedRedis.Close(); err != nil {
			e.logger.Warn("closing redis client", "error", err)
		}
		e.ownedRedis = nil
	}
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CacheAvailable reports the startup probe result. While false, revocation is
// not enforced.
func (e *Engine) CacheAvailable() bool {
	return e != nil && e.cache.Available()
}

// Authenticate runs the gate for one bearer token: revocation ledger, then
// signature, then identity resolution. A revoked token never reaches the
// directory. Failures are *Rejection values.
func (e *Engine) Authenticate(ctx context.Context, token string, opts AuthOptions) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res := flows.RunAuthenticate(ctx, token, opts.Renew, e.flows.Authenticate)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}

	if res.Failure != flows.AuthFailureNone {
		return nil, e.rejectAuth(ctx, res)
	}

	e.metricInc(MetricAuthSuccess)
	out := &AuthResult{
		User:    userFromIdentity(res.Identity),
		TokenID: res.Claims.ID,
	}
	if res.Claims.ExpiresAt != nil {
		out.ExpiresAt = res.Claims.ExpiresAt.Time
	}

	if res.Renewal != nil {
		e.finishRenewal(ctx, out, res.Renewal)
	}

	return out, nil
}

func (e *Engine) rejectAuth(ctx context.Context, res flows.AuthenticateResult) error {
	var (
		rej    *Rejection
		metric MetricID
	)
	switch res.Failure {
	case flows.AuthFailureNoToken:
		rej, metric = ErrTokenRequired, MetricAuthNoToken
	case flows.AuthFailureRevoked:
		rej, metric = ErrTokenRevoked, MetricAuthRevoked
	case flows.AuthFailureExpired:
		rej, metric = ErrTokenExpired, MetricAuthExpired
	case flows.AuthFailureUserNotFound:
		rej, metric = ErrUserNotFound, MetricAuthUserNotFound
	case flows.AuthFailureDeactivated:
		rej, metric = ErrAccountDeactivated, MetricAuthDeactivated
	case flows.AuthFailureDirectoryUnavailable:
		rej, metric = ErrDirectoryUnavailable, MetricDirectoryUnavailable
		e.logger.Error("user directory lookup failed", "error", res.Err)
	default:
		rej, metric = ErrInvalidToken, MetricAuthInvalidToken
		if res.Err != nil {
			e.logger.Debug("credential rejected", "kind", jwt.KindOf(res.Err).String())
		}
	}
	e.metricInc(metric)

	var userID, tokenID string
	if res.Claims != nil {
		userID, tokenID = res.Claims.Subject, res.Claims.ID
	}
	e.emitAudit(ctx, auditEventAuthRejected, false, userID, tokenID, rej, nil)
	return rej
}

// finishRenewal applies a silent renewal outcome. A failed renewal is logged and
// the request continues on the old token.
func (e *Engine) finishRenewal(ctx context.Context, out *AuthResult, renewal *flows.RenewResult) {
	if renewal.Err != nil {
		e.metricInc(MetricRenewalFailure)
		e.logger.Warn("token renewal failed; continuing with presented token", "user_id", out.User.ID, "error", renewal.Err)
		e.emitAudit(ctx, auditEventRenewalFailed, false, out.User.ID, out.TokenID, nil, nil)
		return
	}

	e.metricInc(MetricRenewalSuccess)
	e.countRevocation(renewal.Old)
	out.NewToken = renewal.Token

	var newID string
	if renewal.Claims != nil {
		newID = renewal.Claims.ID
	}
	e.emitAudit(ctx, auditEventTokenRenewed, true, out.User.ID, out.TokenID, nil, func() map[string]string {
		return map[string]string{"new_token_id": newID}
	})
}

// Revoke blocks token for the rest of its lifetime. Revoking an expired token,
// one this engine did not sign, or the same token twice is a no-op. With the cache down
// the marker cannot be written; that is logged, not returned.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrTokenRequired
	}

	res := e.revoke(ctx, token)
	e.countRevocation(res)

	if res.Forged {
		return nil
	}

	var userID, tokenID string
	if claims, err := e.jwtManager.Authentic(token); err == nil {
		userID, tokenID = claims.Subject, claims.ID
	}
	e.emitAudit(ctx, auditEventTokenRevoked, res.Recorded, userID, tokenID, nil, func() map[string]string {
		return map[string]string{"remaining": res.Remaining.String()}
	})
	return nil
}

// IsRevoked reports whether a marker exists for token. It is always false while
// the cache is unavailable.
func (e *Engine) IsRevoked(ctx context.Context, token string) bool {
	if e == nil || token == "" {
		return false
	}
	return e.cache.Exists(ctx, e.revokedKey(token))
}

func (e *Engine) revoke(ctx context.Context, token string) flows.RevokeResult {
	return flows.RunRevoke(ctx, token, e.flows.Revoke)
}

func (e *Engine) writeRevocationMarker(ctx context.Context, token string, ttl time.Duration) bool {
	// A marker write that has been sent must survive the request being cancelled.
	return e.cache.Set(context.WithoutCancel(ctx), e.revokedKey(token), []byte("1"), ttl)
}

func (e *Engine) countRevocation(res flows.RevokeResult) {
	switch {
	case res.Forged:
		e.logger.Debug("revocation ignored; token not signed by this engine")
	case res.Remaining <= 0:
		e.metricInc(MetricRevocationSkipped)
	case res.Recorded:
		e.metricInc(MetricRevocationRecorded)
	default:
		e.metricInc(MetricRevocationUnrecorded)
		e.logger.Warn("revocation not recorded; cache unavailable", "remaining", res.Remaining)
	}
}

// Logout revokes token and drops the cached snapshot of its subject so the next
// resolution reads the directory. Calling it twice is safe.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrTokenRequired
	}

	res := flows.RunLogout(ctx, token, e.flows.Logout)
	e.countRevocation(res.Revoke)
	if res.Revoke.Forged {
		return nil
	}
	e.metricInc(MetricLogout)

	e.emitAudit(ctx, auditEventLogout, true, res.UserID, "", nil, func() map[string]string {
		return map[string]string{"snapshot_dropped": boolString(res.SnapshotDropped)}
	})
	return nil
}

// Issue mints a credential for u, for hosts that register users or otherwise
// authenticate outside Login. The snapshot cache is warmed.
func (e *Engine) Issue(ctx context.Context, u User) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if u.ID == "" {
		return "", ErrInvalidUser
	}
	if !u.Active {
		return "", ErrAccountDeactivated
	}

	token, claims, err := e.issueFor(directoryUser(u))
	if err != nil {
		return "", err
	}
	e.storeSnapshot(ctx, flows.SnapshotFromUser(directoryUser(u), e.now()))

	e.emitAudit(ctx, auditEventTokenIssued, true, u.ID, claims.ID, nil, nil)
	return token, nil
}

func (e *Engine) issueFor(u directory.User) (string, *jwt.IdentityClaims, error) {
	token, err := e.jwtManager.Issue(jwt.Identity{
		Subject: u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
	})
	if err != nil {
		return "", nil, err
	}
	claims, err := e.jwtManager.Decode(token)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Refresh exchanges token for a fresh one. Expired tokens are accepted as long
// as signature, issuer and audience check out; revoked tokens and tokens of
// missing or deactivated users are not. The old token is revoked only after the
// replacement exists and the user checks out.
func (e *Engine) Refresh(ctx context.Context, token string) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	if token == "" {
		return "", ErrTokenRequired
	}
	if e.IsRevoked(ctx, token) {
		e.metricInc(MetricAuthRevoked)
		return "", ErrTokenRevoked
	}

	newToken, claims, err := e.jwtManager.Refresh(token)
	if err != nil {
		e.metricInc(MetricRenewalFailure)
		return "", ErrInvalidToken
	}

	identity, err := e.resolveIdentity(ctx, claims.Subject)
	switch {
	case err != nil && isNotFound(err):
		e.metricInc(MetricAuthUserNotFound)
		return "", ErrUserNotFound
	case err != nil:
		e.metricInc(MetricDirectoryUnavailable)
		e.logger.Error("user directory lookup failed", "error", err)
		return "", ErrDirectoryUnavailable
	case !identity.Active:
		e.metricInc(MetricAuthDeactivated)
		return "", ErrAccountDeactivated
	}

	e.countRevocation(e.revoke(ctx, token))
	e.metricInc(MetricRenewalSuccess)
	e.emitAudit(ctx, auditEventTokenRefreshed, true, claims.Subject, claims.ID, nil, nil)
	return newToken, nil
}

// InvalidateUser drops the cached snapshot for userID. Hosts call it after a
// password change, role change or deactivation so the next request reads the
// directory. Outstanding credentials stay valid until they expire or are revoked.
func (e *Engine) InvalidateUser(ctx context.Context, userID string) error {
	if e == nil || e.cache == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrInvalidUser
	}

	dropped := e.dropSnapshot(ctx, userID)
	e.metricInc(MetricUserInvalidated)
	e.emitAudit(ctx, auditEventUserInvalidated, dropped, userID, "", nil, nil)
	return nil
}

// FlushSnapshots removes every cached snapshot and returns how many were
// deleted. It walks the keyspace and belongs on admin paths.
func (e *Engine) FlushSnapshots(ctx context.Context) int {
	if e == nil || e.cache == nil {
		return 0
	}
	n := e.cache.DeleteByPattern(ctx, e.config.Gate.KeyPrefix+"user:")
	e.logger.Info("flushed user snapshots", "count", n)
	return n
}

func (e *Engine) userKey(userID string) string {
	return e.config.Gate.KeyPrefix + "user:" + userID
}

func (e *Engine) revokedKey(token string) string {
	return e.config.Gate.KeyPrefix + "revoked:" + internal.TokenDigest(token)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	jm := e.jwtManager

	var d flows.Deps
	d.Revoke = flows.RevokeDeps{
		Authentic: func(token string) bool {
			_, err := jm.Authentic(token)
			return err == nil
		},
		RemainingLifetime: jm.RemainingLifetime,
		WriteMarker:       e.writeRevocationMarker,
	}
	d.Renew = flows.RenewDeps{
		Refresh: jm.Refresh,
		Revoke:  e.revoke,
	}
	d.Resolve = flows.ResolveDeps{
		LoadSnapshot:  e.loadSnapshot,
		StoreSnapshot: e.storeSnapshot,
		FindUser:      e.findUser,
		Now:           e.now,
	}
	d.Authenticate = flows.AuthenticateDeps{
		IsRevoked:       e.IsRevoked,
		Verify:          jm.Verify,
		ResolveIdentity: e.resolveIdentity,
		UserNotFound:    directory.ErrNotFound,
		RenewalWindow:   e.config.Gate.RenewalWindow,
		IsExpiringSoon:  jm.IsExpiringSoon,
		Renew: func(ctx context.Context, token string) flows.RenewResult {
			return flows.RunRenew(ctx, token, e.flows.Renew)
		},
	}
	d.Logout = flows.LogoutDeps{
		Revoke: e.revoke,
		Subject: func(token string) (string, bool) {
			claims, err := jm.Authentic(token)
			if err != nil {
				return "", false
			}
			return claims.Subject, claims.Subject != ""
		},
		DropSnapshot: e.dropSnapshot,
	}
	d.Login = e.loginDeps()
	return d
}

func userFromIdentity(id flows.Identity) User {
	return User{
		ID:       id.UserID,
		Email:    id.Email,
		Name:     id.Name,
		Role:     id.Role,
		Verified: id.Verified,
		Active:   id.Active,
	}
}

func directoryUser(u User) directory.User {
	return directory.User{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Verified: u.Verified,
		Active:   u.Active,
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
