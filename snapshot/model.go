package snapshot

// CurrentSchemaVersion is the schema byte written by Encode.
const CurrentSchemaVersion uint8 = 1

// Snapshot is an advisory copy of a directory record. It may be absent, evicted,
// or stale for up to its cache TTL.
type Snapshot struct {
	SchemaVersion uint8

	ID    string
	Email string
	Name  string
	Role  string

	Verified bool
	Active   bool

	// CachedAt is the unix second the snapshot was taken.
	CachedAt int64
}
