// Package store is the local durable side of the journal: offline copies of
// records, the FIFO mutation queue, dead letters, and app sync settings.
// Every record write is paired with exactly one queue append in the same
// transaction, so a local mutation can never silently miss the backlog.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akozlovs/vinotes/internal/journal/store/migrations"
	"github.com/pressly/goose/v3"
)

// CollectionTastingRecords is the remote collection all record mutations
// target.
const CollectionTastingRecords = "tastingRecords"

// Store owns the local SQLite database. The sync engine is its only writer
// besides the mutation entry points; UI-layer callers go through the engine.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the local database at dsn and applies
// pending migrations. The connection pool is capped at one connection:
// the store is a single-user embedded database and this keeps shared
// in-memory test databases coherent.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening local db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating local db: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}
