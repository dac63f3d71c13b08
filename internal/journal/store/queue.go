package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/dbx"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/google/uuid"
)

func enqueue(ctx context.Context, tx dbx.DBTX, op models.OpType, documentID string, payload []byte, at time.Time) error {
	var payloadArg any
	if payload != nil {
		payloadArg = string(payload)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_queue (id, op, collection, document_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), string(op), CollectionTastingRecords, documentID, payloadArg, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueueing %s for %s: %w", op, documentID, err)
	}
	return nil
}

// PendingEntries snapshots the queue in enqueue order. Entries added after
// the snapshot wait for the next drain pass.
func (s *Store) PendingEntries(ctx context.Context) ([]models.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, op, collection, document_id, payload, enqueued_at, retry_count
		FROM sync_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		var op string
		var payload *string
		var enqueuedAt int64
		if err := rows.Scan(&e.Seq, &e.ID, &op, &e.Collection, &e.DocumentID, &payload, &enqueuedAt, &e.RetryCount); err != nil {
			return nil, err
		}
		e.Type = models.OpType(op)
		if payload != nil {
			e.Payload = json.RawMessage(*payload)
		}
		e.EnqueuedAt = time.UnixMilli(enqueuedAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasPendingMutations reports whether the queue holds anything.
func (s *Store) HasPendingMutations(ctx context.Context) (bool, error) {
	n, err := s.PendingCount(ctx)
	return n > 0, err
}

// PendingCount returns the queue length.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting queue: %w", err)
	}
	return n, nil
}

// RemoveEntry deletes a drained entry.
func (s *Store) RemoveEntry(ctx context.Context, seq int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE seq = ?`, seq); err != nil {
		return fmt.Errorf("removing queue entry %d: %w", seq, err)
	}
	return nil
}

// IncrementRetry bumps an entry's retry counter and returns the new value.
func (s *Store) IncrementRetry(ctx context.Context, seq int64) (int, error) {
	var count int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sync_queue SET retry_count = retry_count + 1 WHERE seq = ?`, seq); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT retry_count FROM sync_queue WHERE seq = ?`, seq).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("bumping retry count for entry %d: %w", seq, err)
	}
	return count, nil
}

// MoveToDeadLetters drops the entry from the queue but preserves it, with
// the error that killed it, for inspection and manual recovery.
func (s *Store) MoveToDeadLetters(ctx context.Context, entry models.QueueEntry, lastErr string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_queue WHERE seq = ?`, entry.Seq); err != nil {
			return fmt.Errorf("removing queue entry %d: %w", entry.Seq, err)
		}
		var payloadArg any
		if entry.Payload != nil {
			payloadArg = string(entry.Payload)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dead_letters (id, entry_id, op, collection, document_id, payload, retry_count, last_error, dropped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), entry.ID, string(entry.Type), entry.Collection, entry.DocumentID,
			payloadArg, entry.RetryCount, lastErr, time.Now().UnixMilli())
		if err != nil {
			return fmt.Errorf("dead-lettering entry %s: %w", entry.ID, err)
		}
		return nil
	})
}

// DeadLetters lists dropped mutations, newest first.
func (s *Store) DeadLetters(ctx context.Context) ([]models.DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, op, collection, document_id, payload, retry_count, last_error, dropped_at
		FROM dead_letters ORDER BY dropped_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing dead letters: %w", err)
	}
	defer rows.Close()

	var out []models.DeadLetter
	for rows.Next() {
		var d models.DeadLetter
		var op string
		var payload *string
		var droppedAt int64
		if err := rows.Scan(&d.ID, &d.EntryID, &op, &d.Collection, &d.DocumentID, &payload, &d.RetryCount, &d.LastError, &droppedAt); err != nil {
			return nil, err
		}
		d.Type = models.OpType(op)
		if payload != nil {
			d.Payload = json.RawMessage(*payload)
		}
		d.DroppedAt = time.UnixMilli(droppedAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
