package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/dbx"
	"github.com/akozlovs/vinotes/internal/journal/models"
)

// PutRecordOffline upserts the record locally, marks it unsynced, and
// appends the matching CREATE or UPDATE intent to the queue, all in one
// transaction.
func (s *Store) PutRecordOffline(ctx context.Context, rec *models.Record, op models.OpType) error {
	if op != models.OpCreate && op != models.OpUpdate {
		return fmt.Errorf("put record: unsupported op %q", op)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	now := time.Now()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, user_id, payload, is_offline, last_modified)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				payload = excluded.payload,
				is_offline = 1,
				last_modified = excluded.last_modified
		`, rec.ID, rec.UserID, string(payload), now.UnixMilli())
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", rec.ID, err)
		}
		return enqueue(ctx, tx, op, rec.ID, payload, now)
	})
}

// DeleteRecordOffline removes the local copy and appends a DELETE intent.
func (s *Store) DeleteRecordOffline(ctx context.Context, id string) error {
	now := time.Now()
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting record %s: %w", id, err)
		}
		return enqueue(ctx, tx, models.OpDelete, id, nil, now)
	})
}

// Record returns the offline wrapper for one record.
func (s *Store) Record(ctx context.Context, id string) (*models.OfflineRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload, is_offline, last_modified, conflict_data
		FROM records WHERE id = ?`, id)
	rec, err := scanOfflineRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", id, err)
	}
	return rec, nil
}

// RecordsForUser returns all locally held records for the user, synced or
// not, newest modification first.
func (s *Store) RecordsForUser(ctx context.Context, userID string) ([]*models.OfflineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload, is_offline, last_modified, conflict_data
		FROM records WHERE user_id = ?
		ORDER BY last_modified DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing records for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*models.OfflineRecord
	for rows.Next() {
		rec, err := scanOfflineRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ConflictedRecords returns every record with an open conflict.
func (s *Store) ConflictedRecords(ctx context.Context) ([]*models.OfflineRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload, is_offline, last_modified, conflict_data
		FROM records WHERE conflict_data IS NOT NULL
		ORDER BY last_modified DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conflicted records: %w", err)
	}
	defer rows.Close()

	var out []*models.OfflineRecord
	for rows.Next() {
		rec, err := scanOfflineRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetConflict attaches the server's competing version to the local record,
// putting it into the conflicted state.
func (s *Store) SetConflict(ctx context.Context, documentID string, server *models.Record) error {
	data, err := json.Marshal(server)
	if err != nil {
		return fmt.Errorf("encoding conflict data for %s: %w", documentID, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET conflict_data = ? WHERE id = ?`, string(data), documentID)
	if err != nil {
		return fmt.Errorf("attaching conflict to %s: %w", documentID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// MarkSynced clears the offline flag after a confirmed remote write and
// adopts the server-assigned version so later updates carry the right
// precondition.
func (s *Store) MarkSynced(ctx context.Context, documentID string, server *models.Record) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rec, err := recordForUpdate(ctx, tx, documentID)
		if errors.Is(err, common.ErrorNotFound) {
			// Deleted locally between enqueue and drain; nothing to mark.
			return nil
		}
		if err != nil {
			return err
		}
		if server != nil {
			rec.Record.Version = server.Version
			rec.Record.UpdatedAt = server.UpdatedAt
		}
		payload, err := json.Marshal(&rec.Record)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", documentID, err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE records SET payload = ?, is_offline = 0 WHERE id = ?`,
			string(payload), documentID)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOfflineRecord(row rowScanner) (*models.OfflineRecord, error) {
	var payload string
	var isOffline int
	var lastModified int64
	var conflict sql.NullString
	if err := row.Scan(&payload, &isOffline, &lastModified, &conflict); err != nil {
		return nil, err
	}

	out := &models.OfflineRecord{
		IsOffline:    isOffline != 0,
		LastModified: time.UnixMilli(lastModified),
	}
	if err := json.Unmarshal([]byte(payload), &out.Record); err != nil {
		return nil, fmt.Errorf("decoding record payload: %w", err)
	}
	if conflict.Valid {
		var server models.Record
		if err := json.Unmarshal([]byte(conflict.String), &server); err != nil {
			return nil, fmt.Errorf("decoding conflict data: %w", err)
		}
		out.ConflictData = &server
	}
	return out, nil
}

func recordForUpdate(ctx context.Context, tx dbx.DBTX, id string) (*models.OfflineRecord, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT payload, is_offline, last_modified, conflict_data
		FROM records WHERE id = ?`, id)
	rec, err := scanOfflineRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return rec, err
}
