// Package audit implements async event dispatching for gate outcomes.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON lines, hclog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record.
//
// # What this package must NOT do
//
//   - Decide which events to emit (the engine does).
//   - Import goGate or any sibling internal package.
//   - Receive raw credentials.
package audit
