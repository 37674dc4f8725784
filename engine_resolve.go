package goGate

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/directory"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/snapshot"
)

func (e *Engine) resolveIdentity(ctx context.Context, userID string) (flows.Identity, error) {
	res := flows.RunResolveIdentity(ctx, userID, e.flows.Resolve)
	return res.Identity, res.Err
}

// loadSnapshot treats an undecodable entry as a miss and removes it, so a schema
// bump or a corrupted value heals on the next directory read.
func (e *Engine) loadSnapshot(ctx context.Context, userID string) (*snapshot.Snapshot, bool) {
	raw, ok := e.cache.Get(ctx, e.userKey(userID))
	if !ok {
		e.metricInc(MetricSnapshotMiss)
		return nil, false
	}

	snap, err := snapshot.Decode(raw)
	if err != nil {
		e.logger.Debug("discarding unreadable user snapshot", "user_id", userID, "error", err)
		e.cache.Delete(ctx, e.userKey(userID))
		e.metricInc(MetricSnapshotMiss)
		return nil, false
	}

	e.metricInc(MetricSnapshotHit)
	return snap, true
}

func (e *Engine) storeSnapshot(ctx context.Context, snap *snapshot.Snapshot) bool {
	raw, err := snapshot.Encode(snap)
	if err != nil {
		e.logger.Warn("encoding user snapshot", "user_id", snap.ID, "error", err)
		return false
	}
	return e.cache.Set(ctx, e.userKey(snap.ID), raw, e.config.Gate.SnapshotTTL)
}

func (e *Engine) dropSnapshot(ctx context.Context, userID string) bool {
	return e.cache.Delete(ctx, e.userKey(userID))
}

type lookupResult struct {
	user directory.User
	err  error
}

// findUser collapses concurrent directory reads for the same id into one. The
// shared read runs detached from any single caller's cancellation and is bounded
// by the directory timeout instead; each caller still returns when its own
// context ends.
func (e *Engine) findUser(ctx context.Context, userID string) (directory.User, error) {
	ch := e.lookups.DoChan("id:"+userID, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Gate.DirectoryTimeout)
		defer cancel()

		u, err := e.directory.FindByID(lookupCtx, userID)
		return lookupResult{user: u, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return directory.User{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			e.metricInc(MetricDirectoryLookupShared)
		}
		res := r.Val.(lookupResult)
		return res.user, res.err
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, directory.ErrNotFound)
}
