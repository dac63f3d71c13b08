package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/dbx"
	"github.com/akozlovs/vinotes/internal/journal/models"
)

// ResolveKeepLocal closes the record's conflict keeping the local field
// values authoritative. The stale intents for the document are replaced by
// one fresh UPDATE carrying the server's version, so the next drain pushes
// the resolved copy without tripping the precondition again.
func (s *Store) ResolveKeepLocal(ctx context.Context, documentID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := recordForUpdate(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if rec.ConflictData == nil {
			return common.ErrorNoConflict
		}

		now := time.Now()
		resolved := rec.Record
		resolved.Version = rec.ConflictData.Version
		resolved.UpdatedAt = now

		payload, err := json.Marshal(&resolved)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", documentID, err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE records SET payload = ?, is_offline = 1, last_modified = ?, conflict_data = NULL
			WHERE id = ?`, string(payload), now.UnixMilli(), documentID)
		if err != nil {
			return fmt.Errorf("resolving %s locally: %w", documentID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sync_queue WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clearing stale intents for %s: %w", documentID, err)
		}
		return enqueue(ctx, tx, models.OpUpdate, documentID, payload, now)
	})
}

// ResolveKeepServer closes the conflict by adopting the server's copy
// wholesale. Nothing is re-enqueued: the server is already authoritative.
func (s *Store) ResolveKeepServer(ctx context.Context, documentID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := recordForUpdate(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if rec.ConflictData == nil {
			return common.ErrorNoConflict
		}

		payload, err := json.Marshal(rec.ConflictData)
		if err != nil {
			return fmt.Errorf("encoding server copy of %s: %w", documentID, err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE records SET payload = ?, is_offline = 0, last_modified = ?, conflict_data = NULL
			WHERE id = ?`, string(payload), time.Now().UnixMilli(), documentID)
		if err != nil {
			return fmt.Errorf("adopting server copy of %s: %w", documentID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sync_queue WHERE document_id = ?`, documentID); err != nil {
			return fmt.Errorf("clearing stale intents for %s: %w", documentID, err)
		}
		return nil
	})
}
