package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
)

// SaveProfileSnapshot upserts the cached copy of the user's profile so the
// UI has something to show while offline.
func (s *Store) SaveProfileSnapshot(ctx context.Context, p *models.UserProfile) error {
	p.UpdatedAt = time.Now()
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.UserID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, p.UserID, string(payload), p.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.UserID, err)
	}
	return nil
}

// ProfileSnapshot returns the locally cached profile, or ErrorNotFound when
// the user has never been snapshotted.
func (s *Store) ProfileSnapshot(ctx context.Context, userID string) (*models.UserProfile, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM profiles WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	var p models.UserProfile
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return &p, nil
}
