package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

const (
	settingLastSyncTime = "last_sync_time"
	settingIsOnline     = "is_online"
	settingAutoSync     = "auto_sync"
)

func (s *Store) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting[%s]: %w", key, err)
	}
	return nil
}

// LastSyncTime returns the end time of the most recent drain pass, zero if
// none has run yet.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	v, err := s.getSetting(ctx, settingLastSyncTime)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing last sync time: %w", err)
	}
	return t, nil
}

func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.setSetting(ctx, settingLastSyncTime, t.Format(time.RFC3339Nano))
}

// AutoSync defaults to true when never set.
func (s *Store) AutoSync(ctx context.Context) (bool, error) {
	v, err := s.getSetting(ctx, settingAutoSync)
	if err != nil {
		return false, err
	}
	return v != "0", nil
}

func (s *Store) SetAutoSync(ctx context.Context, enabled bool) error {
	return s.setSetting(ctx, settingAutoSync, boolValue(enabled))
}

// IsOnline defaults to false when never set.
func (s *Store) IsOnline(ctx context.Context) (bool, error) {
	v, err := s.getSetting(ctx, settingIsOnline)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *Store) SetOnline(ctx context.Context, online bool) error {
	return s.setSetting(ctx, settingIsOnline, boolValue(online))
}

// Settings bundles the singleton into one snapshot.
func (s *Store) Settings(ctx context.Context) (*models.SyncSettings, error) {
	last, err := s.LastSyncTime(ctx)
	if err != nil {
		return nil, err
	}
	online, err := s.IsOnline(ctx)
	if err != nil {
		return nil, err
	}
	auto, err := s.AutoSync(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SyncSettings{LastSyncTime: last, IsOnline: online, AutoSync: auto}, nil
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
