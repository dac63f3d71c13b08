package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/journal/remote"
)

// Summary tallies one drain pass.
type Summary struct {
	Success   int `json:"success"`
	Failed    int `json:"failed"`
	Conflicts int `json:"conflicts"`
	Dropped   int `json:"dropped"`
}

// Sync drains the mutation queue strictly in enqueue order. It is a no-op
// returning zero counts while offline or while another drain is running.
// Individual entry failures never abort the pass; the summary is the only
// externally visible outcome. LastSyncTime is stamped after every pass
// regardless of the outcome mix.
func (e *Engine) Sync(ctx context.Context) (Summary, error) {
	e.mu.Lock()
	if e.syncing || !e.online.Load() {
		e.mu.Unlock()
		return Summary{}, nil
	}
	e.syncing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	// Snapshot: entries enqueued during the pass wait for the next one.
	entries, err := e.store.PendingEntries(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("snapshotting queue: %w", err)
	}

	var sum Summary
	for _, entry := range entries {
		e.drainEntry(ctx, entry, &sum)
	}

	if err := e.store.SetLastSyncTime(ctx, time.Now()); err != nil {
		e.log.Warn(ctx, "stamping last sync time failed", "error", err)
	}

	e.log.Info(ctx, "drain finished",
		"processed", len(entries),
		"success", sum.Success,
		"failed", sum.Failed,
		"conflicts", sum.Conflicts,
		"dropped", sum.Dropped)
	return sum, nil
}

func (e *Engine) drainEntry(ctx context.Context, entry models.QueueEntry, sum *Summary) {
	server, applyErr := e.applyEntry(ctx, entry)

	switch remote.Classify(applyErr) {
	case remote.OutcomeSuccess:
		if err := e.store.RemoveEntry(ctx, entry.Seq); err != nil {
			e.log.Error(ctx, "removing drained entry failed", "entry", entry.ID, "error", err)
			return
		}
		if entry.Type != models.OpDelete {
			if err := e.store.MarkSynced(ctx, entry.DocumentID, server); err != nil {
				e.log.Error(ctx, "marking record synced failed", "record_id", entry.DocumentID, "error", err)
			}
		}
		sum.Success++

	case remote.OutcomeConflict:
		if e.attachConflict(ctx, entry) {
			sum.Conflicts++
		} else {
			e.failEntry(ctx, entry, applyErr, sum)
		}

	case remote.OutcomePermanent:
		e.log.Warn(ctx, "dropping permanently failing mutation",
			"entry", entry.ID, "record_id", entry.DocumentID, "error", applyErr)
		if err := e.store.MoveToDeadLetters(ctx, entry, applyErr.Error()); err != nil {
			e.log.Error(ctx, "dead-lettering entry failed", "entry", entry.ID, "error", err)
			return
		}
		sum.Failed++
		sum.Dropped++

	default: // retryable
		e.failEntry(ctx, entry, applyErr, sum)
	}
}

// attachConflict fetches the server's current version and opens a conflict
// on the local record, leaving the queue entry untouched so the same intent
// retries once the user resolves. Returns false when the server version
// could not be attached; the caller then treats the attempt as retryable.
func (e *Engine) attachConflict(ctx context.Context, entry models.QueueEntry) bool {
	server, err := e.remote.FetchRecord(ctx, entry.DocumentID)
	if err != nil {
		e.log.Warn(ctx, "fetching server version for conflict failed",
			"record_id", entry.DocumentID, "error", err)
		return false
	}
	if err := e.store.SetConflict(ctx, entry.DocumentID, server); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Local copy is gone (deleted while queued); nothing to mark.
			return false
		}
		e.log.Error(ctx, "attaching conflict failed", "record_id", entry.DocumentID, "error", err)
		return false
	}
	e.log.Info(ctx, "conflict detected", "record_id", entry.DocumentID)
	return true
}

// failEntry counts a retryable failure, dropping the entry to the
// dead-letter table once the cap is exhausted.
func (e *Engine) failEntry(ctx context.Context, entry models.QueueEntry, cause error, sum *Summary) {
	sum.Failed++
	count, err := e.store.IncrementRetry(ctx, entry.Seq)
	if err != nil {
		e.log.Error(ctx, "bumping retry count failed", "entry", entry.ID, "error", err)
		return
	}
	if count < e.maxRetries {
		e.log.Warn(ctx, "entry failed, will retry",
			"entry", entry.ID, "record_id", entry.DocumentID, "attempt", count, "error", cause)
		return
	}

	entry.RetryCount = count
	msg := "retry cap exhausted"
	if cause != nil {
		msg = cause.Error()
	}
	e.log.Warn(ctx, "retry cap exhausted, dropping mutation",
		"entry", entry.ID, "record_id", entry.DocumentID, "attempts", count)
	if err := e.store.MoveToDeadLetters(ctx, entry, msg); err != nil {
		e.log.Error(ctx, "dead-lettering entry failed", "entry", entry.ID, "error", err)
		return
	}
	sum.Dropped++
}

// applyEntry pushes one intent to the remote API. A payload that cannot
// even be decoded classifies as permanent.
func (e *Engine) applyEntry(ctx context.Context, entry models.QueueEntry) (*models.Record, error) {
	switch entry.Type {
	case models.OpCreate:
		rec, err := entry.RecordPayload()
		if err != nil || rec == nil {
			return nil, fmt.Errorf("%w: undecodable create payload: %v", common.ErrorValidation, err)
		}
		return e.remote.CreateRecord(ctx, rec)

	case models.OpUpdate:
		rec, err := entry.RecordPayload()
		if err != nil || rec == nil {
			return nil, fmt.Errorf("%w: undecodable update payload: %v", common.ErrorValidation, err)
		}
		// The payload carries the version current at enqueue time. An
		// earlier entry in this pass may have synced the document and
		// adopted a newer server version; present that one, or a chain of
		// our own sequential edits reads as a conflict.
		if local, lerr := e.store.Record(ctx, entry.DocumentID); lerr == nil {
			rec.Version = local.Version
		}
		return e.remote.UpdateRecord(ctx, entry.DocumentID, rec)

	case models.OpDelete:
		return nil, e.remote.DeleteRecord(ctx, entry.DocumentID)

	default:
		return nil, fmt.Errorf("%w: unknown op %q", common.ErrorValidation, entry.Type)
	}
}
