// Package jwt issues and verifies the signed, time-bound credentials used by the
// session gate.
//
// Every credential carries a minimal identity claim set (subject, email, display
// name, role) plus fixed issuer and audience strings. Verification checks the
// signature, the expiry, and both binding strings: a token signed with the same
// secret by an unrelated system is rejected.
//
// # Error kinds
//
// Failures are reported as [*Error] values carrying a closed [ErrorKind]. Callers
// dispatch on [KindOf] instead of matching error text.
//
// # What this package must NOT do
//
//   - Touch the cache or the user directory.
//   - Treat [Manager.Decode] or [Manager.RemainingLifetime] as verification; both
//     exist for bookkeeping only.
package jwt
