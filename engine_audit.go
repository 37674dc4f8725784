package goGate

import (
	"context"
	"strings"
)

const (
	auditEventAuthRejected     = "auth_rejected"
	auditEventTokenRenewed     = "token_renewed"
	auditEventRenewalFailed    = "token_renewal_failed"
	auditEventTokenRefreshed   = "token_refreshed"
	auditEventTokenRevoked     = "token_revoked"
	auditEventTokenIssued      = "token_issued"
	auditEventLogout           = "logout"
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventUserInvalidated  = "user_invalidated"
)

// AuditErrorCode is the Error field of failed audit events.
type AuditErrorCode string

const (
	auditErrUnavailable AuditErrorCode = "backend_unavailable"
	auditErrInternal    AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode reuses rejection codes, lower-cased, so audit consumers and
// HTTP clients see the same vocabulary.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	if r, ok := RejectionOf(err); ok {
		if r.Code == CodeDirectoryUnavailable {
			return auditErrUnavailable
		}
		return AuditErrorCode(strings.ToLower(r.Code))
	}
	return auditErrInternal
}
