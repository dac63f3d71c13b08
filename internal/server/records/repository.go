// Package records persists tasting records server-side with optimistic
// concurrency: every stored record carries a version the server bumps on
// each write, and updates must present the version they are based on.
package records

import (
	"context"

	"github.com/akozlovs/vinotes/internal/journal/models"
)

// Repository is the server's record storage.
//
//   - Create fails with common.ErrVersionConflict when the id already
//     exists; the stored record starts at version 1.
//   - Update fails with common.ErrorNotFound when the id is absent and
//     with common.ErrVersionConflict when the presented version is stale;
//     on success the stored version is bumped.
//   - Delete is idempotent: deleting an absent id is not an error, so a
//     replayed DELETE intent settles cleanly.
//   - Get returns common.ErrorNotFound when the id is absent.
type Repository interface {
	Create(ctx context.Context, rec *models.Record) (*models.Record, error)
	Update(ctx context.Context, id string, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Record, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Record, error)
	Ping(ctx context.Context) error
}
