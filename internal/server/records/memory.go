package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
)

// MemoryRepository keeps everything in a map behind a mutex. It backs tests
// and local development; production runs use PostgresRepository.
type MemoryRepository struct {
	mu   sync.RWMutex
	recs map[string]*models.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{recs: make(map[string]*models.Record)}
}

func (r *MemoryRepository) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.recs[rec.ID]; exists {
		return nil, fmt.Errorf("%w: record %s already exists", common.ErrVersionConflict, rec.ID)
	}
	stored := rec.Clone()
	stored.Version = 1
	stored.UpdatedAt = time.Now()
	r.recs[rec.ID] = stored
	return stored.Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, rec *models.Record) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.recs[id]
	if !exists {
		return nil, fmt.Errorf("%w: record %s", common.ErrorNotFound, id)
	}
	if rec.Version != current.Version {
		return nil, fmt.Errorf("%w: record %s is at version %d, update based on %d",
			common.ErrVersionConflict, id, current.Version, rec.Version)
	}
	stored := rec.Clone()
	stored.ID = id
	stored.Version = current.Version + 1
	stored.UpdatedAt = time.Now()
	r.recs[id] = stored
	return stored.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.recs, id)
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.recs[id]
	if !exists {
		return nil, fmt.Errorf("%w: record %s", common.ErrorNotFound, id)
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Record, 0)
	for _, rec := range r.recs {
		if rec.UserID == userID {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}
