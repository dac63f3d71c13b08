// Package syncer drains the local mutation queue against the record
// persistence API, classifies every outcome, and surfaces per-record
// conflicts for user-mediated resolution.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/journal/remote"
	"github.com/akozlovs/vinotes/internal/journal/store"
	"github.com/akozlovs/vinotes/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries is the bounded-retry cap: an entry that fails this
	// many drain attempts is dropped to the dead-letter table.
	DefaultMaxRetries = 3

	// DefaultSettleDelay is how long the engine waits after coming online
	// before an automatic drain, letting flaky connectivity settle.
	DefaultSettleDelay = 2 * time.Second

	// DefaultProbeInterval is how often the watcher checks reachability.
	DefaultProbeInterval = 3 * time.Second

	probeTimeout = 3 * time.Second
)

// Probe answers "can the remote be reached right now". Injected so tests
// flip connectivity without real sockets.
type Probe interface {
	Check(ctx context.Context) error
}

// clientProbe treats a successful ping as reachability.
type clientProbe struct {
	c remote.Client
}

func (p clientProbe) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return p.c.Ping(ctx)
}

// Options tunes an Engine. Zero values fall back to the defaults above.
type Options struct {
	MaxRetries    int
	SettleDelay   time.Duration
	ProbeInterval time.Duration
	Probe         Probe
}

// Engine is the offline-first mutation surface for the journal. All UI
// reads and writes flow through it; the store is never touched directly.
// Construct one per dependency graph and inject it.
type Engine struct {
	store    *store.Store
	remote   remote.Client
	log      logging.Logger
	validate *validator.Validate

	maxRetries    int
	settleDelay   time.Duration
	probeInterval time.Duration
	probe         Probe

	online  atomic.Bool
	mu      sync.Mutex
	syncing bool
}

func New(st *store.Store, client remote.Client, log logging.Logger, opts Options) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	e := &Engine{
		store:         st,
		remote:        client,
		log:           log,
		validate:      validator.New(),
		maxRetries:    opts.MaxRetries,
		settleDelay:   opts.SettleDelay,
		probeInterval: opts.ProbeInterval,
		probe:         opts.Probe,
	}
	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.settleDelay <= 0 {
		e.settleDelay = DefaultSettleDelay
	}
	if e.probeInterval <= 0 {
		e.probeInterval = DefaultProbeInterval
	}
	if e.probe == nil {
		e.probe = clientProbe{c: client}
	}
	return e
}

// SaveOffline validates the record, assigns an ID if it has none, writes it
// locally and queues a CREATE intent. Invalid records never reach the queue.
func (e *Engine) SaveOffline(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if err := e.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UpdatedAt = time.Now()
	if err := e.store.PutRecordOffline(ctx, rec, models.OpCreate); err != nil {
		return nil, err
	}
	e.log.Debug(ctx, "record saved offline", "record_id", rec.ID)
	return rec, nil
}

// UpdateOffline validates the record, writes it locally and queues an
// UPDATE intent.
func (e *Engine) UpdateOffline(ctx context.Context, rec *models.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: update requires an id", common.ErrorValidation)
	}
	if err := e.validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	rec.UpdatedAt = time.Now()
	if err := e.store.PutRecordOffline(ctx, rec, models.OpUpdate); err != nil {
		return err
	}
	e.log.Debug(ctx, "record updated offline", "record_id", rec.ID)
	return nil
}

// DeleteOffline removes the local copy and queues a DELETE intent.
func (e *Engine) DeleteOffline(ctx context.Context, id string) error {
	if err := e.store.DeleteRecordOffline(ctx, id); err != nil {
		return err
	}
	e.log.Debug(ctx, "record deleted offline", "record_id", id)
	return nil
}

// Records returns the user's locally held records, synced or not.
func (e *Engine) Records(ctx context.Context, userID string) ([]*models.OfflineRecord, error) {
	return e.store.RecordsForUser(ctx, userID)
}

// RecordsForUser strips the offline wrapper; it satisfies the citation
// matcher's record source.
func (e *Engine) RecordsForUser(ctx context.Context, userID string) ([]*models.Record, error) {
	wrapped, err := e.store.RecordsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Record, 0, len(wrapped))
	for _, w := range wrapped {
		out = append(out, &w.Record)
	}
	return out, nil
}

// IsOnline reports the engine's current connectivity belief.
func (e *Engine) IsOnline() bool {
	return e.online.Load()
}

// IsSyncing reports whether a drain pass is running right now.
func (e *Engine) IsSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// HasOfflineData reports whether unsynced mutations are queued.
func (e *Engine) HasOfflineData(ctx context.Context) (bool, error) {
	return e.store.HasPendingMutations(ctx)
}

// LastSyncTime returns when the last drain pass finished.
func (e *Engine) LastSyncTime(ctx context.Context) (time.Time, error) {
	return e.store.LastSyncTime(ctx)
}

// ConflictRecords lists records awaiting user-mediated resolution.
func (e *Engine) ConflictRecords(ctx context.Context) ([]*models.OfflineRecord, error) {
	return e.store.ConflictedRecords(ctx)
}

// DeadLetters lists mutations dropped after exhausting their retries.
func (e *Engine) DeadLetters(ctx context.Context) ([]models.DeadLetter, error) {
	return e.store.DeadLetters(ctx)
}

// SetOnline flips the connectivity flag. The offline-to-online transition
// schedules an automatic drain after the settle delay when auto-sync is
// enabled and mutations are pending; going offline is inert.
func (e *Engine) SetOnline(ctx context.Context, online bool) {
	was := e.online.Swap(online)
	if err := e.store.SetOnline(ctx, online); err != nil {
		e.log.Warn(ctx, "persisting online flag failed", "error", err)
	}
	if online == was {
		return
	}
	e.log.Info(ctx, "connectivity changed", "online", online)
	if online {
		go e.autoDrain(ctx)
	}
}

func (e *Engine) autoDrain(ctx context.Context) {
	select {
	case <-time.After(e.settleDelay):
	case <-ctx.Done():
		return
	}
	auto, err := e.store.AutoSync(ctx)
	if err != nil || !auto {
		return
	}
	pending, err := e.store.HasPendingMutations(ctx)
	if err != nil || !pending {
		return
	}
	if _, err := e.Sync(ctx); err != nil {
		e.log.Error(ctx, "automatic sync failed", "error", err)
	}
}

// StartWatcher probes connectivity on a ticker until ctx is done, feeding
// transitions into SetOnline. Run it on its own goroutine.
func (e *Engine) StartWatcher(ctx context.Context) {
	ticker := time.NewTicker(e.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := e.probe.Check(ctx)
			e.SetOnline(ctx, err == nil)
		case <-ctx.Done():
			return
		}
	}
}
