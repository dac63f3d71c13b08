package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/server/records/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepository stores records as JSONB rows. Version and user_id are
// lifted into columns so concurrency checks and user listings stay in SQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an already-open connection. Callers that
// start from a DSN use OpenPostgres instead.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgres opens the database and runs the embedded goose migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return NewPostgresRepository(db), nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	stored := rec.Clone()
	stored.Version = 1
	stored.UpdatedAt = time.Now()

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	query := `
		INSERT INTO records (id, user_id, payload, version, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;
	`
	res, err := r.db.ExecContext(ctx, query, stored.ID, stored.UserID, payload, stored.Version, stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: record %s already exists", common.ErrVersionConflict, stored.ID)
	}
	return stored, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, rec *models.Record) (*models.Record, error) {
	stored := rec.Clone()
	stored.ID = id
	stored.Version = rec.Version + 1
	stored.UpdatedAt = time.Now()

	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	// The WHERE clause is the optimistic-concurrency check: zero rows
	// updated means either the row is gone or the base version is stale.
	query := `
		UPDATE records
		SET payload = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5;
	`
	res, err := r.db.ExecContext(ctx, query, payload, stored.Version, stored.UpdatedAt, id, rec.Version)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		return stored, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM records WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: record %s", common.ErrorNotFound, id)
	}
	return nil, fmt.Errorf("%w: record %s, update based on version %d", common.ErrVersionConflict, id, rec.Version)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM records WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", common.ErrorNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Record, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		var rec models.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
