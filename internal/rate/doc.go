// Package rate provides the fixed-window failed-login counter used by the engine's
// login operation.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Keys are <prefix>login:<email>.
// Counters live in the volatile cache, so with the cache down every check passes:
// the limiter fails open the same way the revocation ledger does.
//
// # What this package must NOT do
//
//   - Talk to a cache client directly (it only sees [Counter]).
//   - Decide what an email is (callers pass the normalized form).
package rate
