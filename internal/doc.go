// Package internal holds helpers private to goGate.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: the gate, resolve, revoke, renew, logout and login state machines
//   - metrics: lock-free counters and the authenticate latency histogram
//   - rate: login attempt counter on top of the cache
//   - security: security posture report builder
//
// Nothing here appears in the public goGate API.
package internal
