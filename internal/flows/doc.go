// Package flows contains pure-function orchestrators for the gate operations.
//
// Each flow function (RunAuthenticate, RunResolveIdentity, RunRevoke, RunRenew,
// RunLogout, RunLogin) accepts a typed dependency struct and returns a result
// value without side-effects beyond those dependencies. The Engine builds the
// dependency sets once and maps results onto public rejections.
//
// # Ordering
//
// RunAuthenticate checks the revocation ledger strictly before signature
// verification, and verification strictly before identity resolution. A revoked
// token never reaches the directory.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGate (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency funcs.
package flows
