// Package cache provides the best-effort key/value store used by the session gate
// for user snapshots, revocation markers and attempt counters.
//
// # Availability
//
// A [Cache] probes its [Backend] once in [New]. The outcome fixes [Cache.Available]
// for the lifetime of the process; there is no per-call re-probe. While
// unavailable, every operation is a no-op that reports a miss. Backend failures
// after a successful probe are logged and absorbed the same way.
//
// This makes reads fail open (callers fall back to the source of truth) and also
// makes the revocation ledger fail open: with the cache down, nothing can be
// recorded as revoked. That trade-off is deliberate and is reported by the
// engine's security report rather than hidden.
//
// # What this package must NOT do
//
//   - Return backend errors to callers.
//   - Block longer than the configured command timeout.
//   - Interpret the values it stores.
package cache
