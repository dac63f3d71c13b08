package syncer

import (
	"context"
	"fmt"
)

// ResolveConflict closes an open conflict. useLocal keeps the local field
// values authoritative and re-queues them for the next drain; otherwise the
// server's copy is adopted and nothing is pushed. The two choices are
// mutually exclusive per conflict: either path clears the conflicted state
// entirely.
func (e *Engine) ResolveConflict(ctx context.Context, id string, useLocal bool) error {
	var err error
	if useLocal {
		err = e.store.ResolveKeepLocal(ctx, id)
	} else {
		err = e.store.ResolveKeepServer(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("resolving conflict on %s: %w", id, err)
	}
	e.log.Info(ctx, "conflict resolved", "record_id", id, "kept_local", useLocal)
	return nil
}
