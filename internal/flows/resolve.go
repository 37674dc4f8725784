package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/snapshot"
)

// ResolveDeps captures cache-aside identity resolution dependencies.
type ResolveDeps struct {
	LoadSnapshot  func(context.Context, string) (*snapshot.Snapshot, bool)
	StoreSnapshot func(context.Context, *snapshot.Snapshot) bool
	// FindUser is the directory lookup. The engine collapses concurrent calls
	// for the same id and bounds each with its own timeout.
	FindUser func(context.Context, string) (directory.User, error)
	Now      func() time.Time
}

// ResolveResult reports where the identity came from.
type ResolveResult struct {
	Identity  Identity
	FromCache bool
	Cached    bool
	Err       error
}

// RunResolveIdentity looks up the snapshot for userID and falls back to the
// directory on miss. Only active users are written back to the cache.
func RunResolveIdentity(ctx context.Context, userID string, deps ResolveDeps) ResolveResult {
	if snap, ok := deps.LoadSnapshot(ctx, userID); ok && snap.ID == userID {
		return ResolveResult{Identity: identityFromSnapshot(snap), FromCache: true}
	}

	user, err := deps.FindUser(ctx, userID)
	if err != nil {
		return ResolveResult{Err: err}
	}

	res := ResolveResult{Identity: IdentityFromUser(user)}
	if user.Active {
		res.Cached = deps.StoreSnapshot(ctx, SnapshotFromUser(user, deps.Now()))
	}
	return res
}

// IdentityFromUser projects a directory record onto the flow identity.
func IdentityFromUser(u directory.User) Identity {
	return Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		Verified: u.Verified,
		Active:   u.Active,
	}
}

// SnapshotFromUser builds the cacheable copy of u. The password hash is never
// part of it.
func SnapshotFromUser(u directory.User, now time.Time) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		SchemaVersion: snapshot.CurrentSchemaVersion,
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		Verified:      u.Verified,
		Active:        u.Active,
		CachedAt:      now.Unix(),
	}
}

func identityFromSnapshot(s *snapshot.Snapshot) Identity {
	return Identity{
		UserID:   s.ID,
		Email:    s.Email,
		Name:     s.Name,
		Role:     s.Role,
		Verified: s.Verified,
		Active:   s.Active,
	}
}
