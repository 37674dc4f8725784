// Package snapshot provides the compact binary form of a cached user record.
//
// # Binary encoding
//
// A snapshot is stored as a schema byte followed by length-prefixed fields. The
// encoder is append-only: new versions add fields but never reinterpret old ones,
// and the decoder rejects schema bytes it does not know.
//
// # What this package must NOT do
//
//   - Talk to the cache or the user directory.
//   - Decide whether a snapshot is fresh enough to trust.
package snapshot
