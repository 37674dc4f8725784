package goGate

import (
	"io"
	"time"

	"github.com/hashicorp/go-hclog"

	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	internalmetrics "github.com/MrEthical07/goGate/internal/metrics"
	"github.com/MrEthical07/goGate/internal/security"
)

// User is the identity attached to an authenticated request. It never carries
// credential material.
type User struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Verified bool
	Active   bool
}

// AuthOptions tunes a single Authenticate call.
type AuthOptions struct {
	// Renew issues a replacement credential when the presented one is inside the
	// renewal window.
	Renew bool
}

// AuthResult is returned by [Engine.Authenticate].
type AuthResult struct {
	User      User
	TokenID   string
	ExpiresAt time.Time
	// NewToken is set when a silent renewal succeeded. The presented token has
	// been revoked and the caller should adopt this one.
	NewToken string
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
	// NeedsRehash is true when the stored password hash uses weaker parameters
	// than the current config. Hosts may re-hash with the plaintext they hold.
	NeedsRehash bool
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	// CacheAvailable is the startup probe outcome; it never changes.
	CacheAvailable bool
	// CacheReachable is the result of this call's ping.
	CacheReachable bool
	CacheLatency   time.Duration
}

// SecurityReport is a read-only summary of the engine's security posture.
type SecurityReport = security.Report

// PasswordConfigReport lists the Argon2 parameters in a SecurityReport.
type PasswordConfigReport = security.PasswordReport

// AuditEvent is a structured security event.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LoggerSink writes events through an hclog.Logger.
type LoggerSink = internalaudit.LoggerSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewLoggerSink(logger hclog.Logger) *LoggerSink {
	return internalaudit.NewLoggerSink(logger)
}

// MetricID identifies a counter or the latency histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricAuthSuccess           = internalmetrics.MetricAuthSuccess
	MetricAuthNoToken           = internalmetrics.MetricAuthNoToken
	MetricAuthRevoked           = internalmetrics.MetricAuthRevoked
	MetricAuthExpired           = internalmetrics.MetricAuthExpired
	MetricAuthInvalidToken      = internalmetrics.MetricAuthInvalidToken
	MetricAuthUserNotFound      = internalmetrics.MetricAuthUserNotFound
	MetricAuthDeactivated       = internalmetrics.MetricAuthDeactivated
	MetricDirectoryUnavailable  = internalmetrics.MetricDirectoryUnavailable
	MetricSnapshotHit           = internalmetrics.MetricSnapshotHit
	MetricSnapshotMiss          = internalmetrics.MetricSnapshotMiss
	MetricDirectoryLookupShared = internalmetrics.MetricDirectoryLookupShared
	MetricRenewalSuccess        = internalmetrics.MetricRenewalSuccess
	MetricRenewalFailure        = internalmetrics.MetricRenewalFailure
	MetricRevocationRecorded    = internalmetrics.MetricRevocationRecorded
	MetricRevocationSkipped     = internalmetrics.MetricRevocationSkipped
	MetricRevocationUnrecorded  = internalmetrics.MetricRevocationUnrecorded
	MetricLogout                = internalmetrics.MetricLogout
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited      = internalmetrics.MetricLoginRateLimited
	MetricUserInvalidated       = internalmetrics.MetricUserInvalidated
	MetricCacheDegraded         = internalmetrics.MetricCacheDegraded
	MetricAuthenticateLatency   = internalmetrics.MetricAuthenticateLatency
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a Metrics instance. When cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
