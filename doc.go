// Package goGate is a session gate for HTTP services: it issues signed,
// self-describing credentials, decides per request whether a presented
// credential admits its bearer, and keeps a short-lived cache of user identity
// snapshots in front of the user directory.
//
// Engine methods are safe for concurrent use after [Builder.Build]. The engine
// holds no mutable per-request state; everything shared lives in the external
// cache.
//
// # Request gate
//
// [Engine.Authenticate] evaluates a bearer credential in a fixed order:
//
//  1. revocation ledger lookup (a revoked credential never reaches the directory)
//  2. signature, expiry, issuer and audience verification
//  3. identity resolution, snapshot first and directory on a miss
//  4. optional silent renewal when the credential is inside the renewal window
//
// Failures are [*Rejection] values carrying an HTTP status and a stable code.
//
// # Degraded mode
//
// The cache is probed once during Build. If it is unreachable the engine keeps
// serving: snapshots are skipped and every resolution reads the directory,
// revocation markers are neither written nor checked, and login throttling is
// off. Revocation is therefore best-effort unless
// SecurityConfig.RequireRevocation is set, in which case Build fails instead.
//
// # Revocation
//
// A revocation marker is keyed by a digest of the credential and expires when
// the credential would have, so the ledger never outgrows the set of live
// credentials.
package goGate
