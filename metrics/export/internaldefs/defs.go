package internaldefs

import (
	goGate "github.com/MrEthical07/goGate"
)

type CounterDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goGate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goGate.MetricAuthSuccess, Name: "gogate_auth_success_total", Help: "Requests admitted by the gate."},
	{ID: goGate.MetricAuthNoToken, Name: "gogate_auth_no_token_total", Help: "Requests rejected for a missing credential."},
	{ID: goGate.MetricAuthRevoked, Name: "gogate_auth_revoked_total", Help: "Requests rejected for a revoked credential."},
	{ID: goGate.MetricAuthExpired, Name: "gogate_auth_expired_total", Help: "Requests rejected for an expired credential."},
	{ID: goGate.MetricAuthInvalidToken, Name: "gogate_auth_invalid_token_total", Help: "Requests rejected for a malformed, forged or foreign credential."},
	{ID: goGate.MetricAuthUserNotFound, Name: "gogate_auth_user_not_found_total", Help: "Requests whose subject is missing from the directory."},
	{ID: goGate.MetricAuthDeactivated, Name: "gogate_auth_deactivated_total", Help: "Requests from deactivated accounts."},
	{ID: goGate.MetricDirectoryUnavailable, Name: "gogate_directory_unavailable_total", Help: "Directory lookups that failed or timed out."},
	{ID: goGate.MetricSnapshotHit, Name: "gogate_snapshot_hit_total", Help: "Identity resolutions served from the snapshot cache."},
	{ID: goGate.MetricSnapshotMiss, Name: "gogate_snapshot_miss_total", Help: "Identity resolutions that fell through to the directory."},
	{ID: goGate.MetricDirectoryLookupShared, Name: "gogate_directory_lookup_shared_total", Help: "Directory lookups answered by a concurrent in-flight read."},
	{ID: goGate.MetricRenewalSuccess, Name: "gogate_renewal_success_total", Help: "Credentials renewed."},
	{ID: goGate.MetricRenewalFailure, Name: "gogate_renewal_failure_total", Help: "Renewals that could not issue a replacement."},
	{ID: goGate.MetricRevocationRecorded, Name: "gogate_revocation_recorded_total", Help: "Revocation markers written."},
	{ID: goGate.MetricRevocationSkipped, Name: "gogate_revocation_skipped_total", Help: "Revocations skipped because the credential was already spent."},
	{ID: goGate.MetricRevocationUnrecorded, Name: "gogate_revocation_unrecorded_total", Help: "Revocations lost because the cache was unavailable."},
	{ID: goGate.MetricLogout, Name: "gogate_logout_total", Help: "Logout operations."},
	{ID: goGate.MetricLoginSuccess, Name: "gogate_login_success_total", Help: "Successful logins."},
	{ID: goGate.MetricLoginFailure, Name: "gogate_login_failure_total", Help: "Failed logins."},
	{ID: goGate.MetricLoginRateLimited, Name: "gogate_login_rate_limited_total", Help: "Logins refused by the attempt limiter."},
	{ID: goGate.MetricUserInvalidated, Name: "gogate_user_invalidated_total", Help: "Snapshot invalidations requested by the host."},
	{ID: goGate.MetricCacheDegraded, Name: "gogate_cache_errors_total", Help: "Cache operations that failed and were absorbed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goGate.MetricAuthenticateLatency, Name: "gogate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the Prometheus le labels of the latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

const (
	AuditDroppedName = "gogate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

	CacheAvailableName = "gogate_cache_available"
	CacheAvailableHelp = "1 when the cache passed its startup probe and revocation is enforced."
)

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
