package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/journal/remote"
	"github.com/akozlovs/vinotes/internal/journal/store"
	"github.com/akozlovs/vinotes/internal/logging"
	"github.com/akozlovs/vinotes/internal/server/httpapi"
	"github.com/akozlovs/vinotes/internal/server/records"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	onCreate func(rec *models.Record) (*models.Record, error)
	onUpdate func(id string, rec *models.Record) (*models.Record, error)
	onDelete func(id string) error

	// records is what FetchRecord serves, keyed by id.
	records map[string]*models.Record

	pingErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{records: make(map[string]*models.Record)}
}

func (f *fakeRemote) logCall(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) CreateRecord(ctx context.Context, rec *models.Record) (*models.Record, error) {
	f.logCall("CREATE " + rec.ID)
	if f.onCreate != nil {
		return f.onCreate(rec)
	}
	out := rec.Clone()
	out.Version = 1
	return out, nil
}

func (f *fakeRemote) UpdateRecord(ctx context.Context, id string, rec *models.Record) (*models.Record, error) {
	f.logCall("UPDATE " + id)
	if f.onUpdate != nil {
		return f.onUpdate(id, rec)
	}
	out := rec.Clone()
	out.Version = rec.Version + 1
	return out, nil
}

func (f *fakeRemote) DeleteRecord(ctx context.Context, id string) error {
	f.logCall("DELETE " + id)
	if f.onDelete != nil {
		return f.onDelete(id)
	}
	return nil
}

func (f *fakeRemote) FetchRecord(ctx context.Context, id string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[id]; ok {
		return rec.Clone(), nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeRemote) FetchUserRecords(ctx context.Context, userID string) ([]*models.Record, error) {
	return nil, nil
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

var dbSeq int

func setupEngine(t *testing.T, fake *fakeRemote) (*Engine, *store.Store) {
	t.Helper()
	ctx := context.Background()

	dbSeq++
	st, err := store.Open(ctx, fmt.Sprintf("file:synctest%d?mode=memory&cache=shared", dbSeq))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// Automatic drains are exercised explicitly; keep them out of the way
	// for the scripted tests.
	require.NoError(t, st.SetAutoSync(ctx, false))

	e := New(st, fake, nil, Options{
		MaxRetries:    3,
		SettleDelay:   5 * time.Millisecond,
		ProbeInterval: 10 * time.Millisecond,
	})
	return e, st
}

func record(id, name string) *models.Record {
	return &models.Record{ID: id, UserID: "u1", WineName: name}
}

func TestSaveOffline_ValidatesBeforeEnqueue(t *testing.T) {
	e, st := setupEngine(t, newFakeRemote())
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, &models.Record{UserID: "u1"})
	require.ErrorIs(t, err, common.ErrorValidation, "missing wine name")

	_, err = e.SaveOffline(ctx, &models.Record{UserID: "u1", WineName: "x", Rating: 150})
	require.ErrorIs(t, err, common.ErrorValidation, "rating out of range")

	pending, err := st.HasPendingMutations(ctx)
	require.NoError(t, err)
	require.False(t, pending, "invalid records never reach the queue")
}

func TestSaveOffline_AssignsIDAndQueues(t *testing.T) {
	e, st := setupEngine(t, newFakeRemote())
	ctx := context.Background()

	rec, err := e.SaveOffline(ctx, &models.Record{UserID: "u1", WineName: "Barolo"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	pending, err := st.HasPendingMutations(ctx)
	require.NoError(t, err)
	require.True(t, pending)
}

func TestSync_NoopWhileOffline(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{}, sum)
	require.Empty(t, fake.Calls())

	pending, err := st.HasPendingMutations(ctx)
	require.NoError(t, err)
	require.True(t, pending, "queue untouched while offline")
}

func TestSync_DrainsInEnqueueOrder(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	rec := record("r1", "Barolo")
	_, err := e.SaveOffline(ctx, rec)
	require.NoError(t, err)
	rec.Rating = 90
	require.NoError(t, e.UpdateOffline(ctx, rec))
	rec.Rating = 95
	require.NoError(t, e.UpdateOffline(ctx, rec))

	e.SetOnline(ctx, true)
	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Success: 3}, sum)

	require.Equal(t, []string{"CREATE r1", "UPDATE r1", "UPDATE r1"}, fake.Calls(),
		"strict FIFO, no coalescing")

	pending, err := st.HasPendingMutations(ctx)
	require.NoError(t, err)
	require.False(t, pending)

	got, err := st.Record(ctx, "r1")
	require.NoError(t, err)
	require.False(t, got.IsOffline, "fully drained record is synced")
}

// Sequential offline edits by the one writer must drain cleanly against the
// version-checking server: each queued UPDATE presents the version the
// previous entry's confirmation adopted, not the one captured at enqueue
// time.
func TestSync_SequentialEditsAreNotAConflict(t *testing.T) {
	ctx := context.Background()

	repo := records.NewMemoryRepository()
	ts := httptest.NewServer(httpapi.NewRouter(httpapi.NewRecordHandler(repo, logging.NewNop())))
	defer ts.Close()

	dbSeq++
	st, err := store.Open(ctx, fmt.Sprintf("file:synctest%d?mode=memory&cache=shared", dbSeq))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.SetAutoSync(ctx, false))

	e := New(st, remote.NewHTTPClient(ts.URL), nil, Options{MaxRetries: 3})

	rec, err := e.SaveOffline(ctx, &models.Record{UserID: "u1", WineName: "Barolo"})
	require.NoError(t, err)
	rec.Rating = 88
	require.NoError(t, e.UpdateOffline(ctx, rec))
	rec.Rating = 92
	require.NoError(t, e.UpdateOffline(ctx, rec))

	e.SetOnline(ctx, true)
	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Success: 3}, sum)

	conflicted, err := e.ConflictRecords(ctx)
	require.NoError(t, err)
	require.Empty(t, conflicted)

	stored, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, 92, stored.Rating)
	require.Equal(t, int64(3), stored.Version, "create plus two updates")

	local, err := st.Record(ctx, rec.ID)
	require.NoError(t, err)
	require.False(t, local.IsOffline)
	require.Equal(t, int64(3), local.Version)

	// Another edit in a later pass keeps presenting the adopted version.
	rec.Rating = 95
	require.NoError(t, e.UpdateOffline(ctx, rec))
	sum, err = e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Success: 1}, sum)

	stored, err = repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, int64(4), stored.Version)
}

func TestSync_ConflictLeavesEntryQueued(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	for _, id := range []string{"d1", "d2", "d3"} {
		rec := record(id, "Wine "+id)
		_, err := e.SaveOffline(ctx, rec)
		require.NoError(t, err)
	}

	serverCopy := record("d2", "Server Wine")
	serverCopy.Version = 9
	fake.records["d2"] = serverCopy
	fake.onCreate = func(rec *models.Record) (*models.Record, error) {
		if rec.ID == "d2" {
			return nil, common.ErrVersionConflict
		}
		out := rec.Clone()
		out.Version = 1
		return out, nil
	}

	e.SetOnline(ctx, true)
	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Success: 2, Failed: 0, Conflicts: 1}, sum)

	entries, err := st.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "conflicted entry stays queued untouched")
	require.Equal(t, "d2", entries[0].DocumentID)
	require.Equal(t, 0, entries[0].RetryCount, "conflicts do not burn retries")

	conflicted, err := e.ConflictRecords(ctx)
	require.NoError(t, err)
	require.Len(t, conflicted, 1)
	require.Equal(t, "d2", conflicted[0].ID)
	require.NotNil(t, conflicted[0].ConflictData)
	require.Equal(t, "Server Wine", conflicted[0].ConflictData.WineName)
	require.Equal(t, int64(9), conflicted[0].ConflictData.Version)
}

func TestSync_RetryCapBoundary(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	fake.onCreate = func(rec *models.Record) (*models.Record, error) {
		return nil, errors.New("service unavailable")
	}
	e.SetOnline(ctx, true)

	// Attempts one and two: failed but still queued.
	for attempt := 1; attempt <= 2; attempt++ {
		sum, err := e.Sync(ctx)
		require.NoError(t, err)
		require.Equal(t, Summary{Failed: 1}, sum, "attempt %d", attempt)

		entries, err := st.PendingEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, attempt, entries[0].RetryCount)
	}

	// Third failed attempt exhausts the cap.
	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Failed: 1, Dropped: 1}, sum)

	entries, err := st.PendingEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries, "dropped after the third failure, not before")

	dead, err := e.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.Equal(t, "r1", dead[0].DocumentID)
	require.Equal(t, 3, dead[0].RetryCount)
	require.Contains(t, dead[0].LastError, "service unavailable")

	// A later drain has nothing to process.
	sum, err = e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{}, sum)
}

func TestSync_PermanentFailureDeadLettersImmediately(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	fake.onCreate = func(rec *models.Record) (*models.Record, error) {
		return nil, fmt.Errorf("%w: rejected by server", common.ErrorValidation)
	}
	e.SetOnline(ctx, true)

	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{Failed: 1, Dropped: 1}, sum)

	entries, err := st.PendingEntries(ctx)
	require.NoError(t, err)
	require.Empty(t, entries, "no retries for permanently invalid payloads")

	dead, err := e.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
}

func TestSync_StampsLastSyncTimeRegardlessOfOutcome(t *testing.T) {
	fake := newFakeRemote()
	fake.onCreate = func(rec *models.Record) (*models.Record, error) {
		return nil, errors.New("down")
	}
	e, _ := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	before, err := e.LastSyncTime(ctx)
	require.NoError(t, err)
	require.True(t, before.IsZero())

	e.SetOnline(ctx, true)
	_, err = e.Sync(ctx)
	require.NoError(t, err)

	after, err := e.LastSyncTime(ctx)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), after, time.Minute)
}

func TestSync_SingleFlightAndSnapshot(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	block := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	fake.onCreate = func(rec *models.Record) (*models.Record, error) {
		once.Do(func() { close(started) })
		<-block
		out := rec.Clone()
		out.Version = 1
		return out, nil
	}

	e.SetOnline(ctx, true)

	var wg sync.WaitGroup
	var firstSum Summary
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstSum, _ = e.Sync(ctx)
	}()

	<-started
	require.True(t, e.IsSyncing())

	// Concurrent caller observes a no-op, not a queued second drain.
	sum, err := e.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, Summary{}, sum)

	// A mutation landing mid-drain is not part of the running snapshot.
	_, err = e.SaveOffline(ctx, record("r2", "Chianti"))
	require.NoError(t, err)

	close(block)
	wg.Wait()

	require.Equal(t, Summary{Success: 1}, firstSum)
	require.False(t, e.IsSyncing())

	entries, err := st.PendingEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "r2", entries[0].DocumentID, "mid-drain mutation waits for the next pass")
}

func TestResolveConflict_LocalRequeues(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	rec := record("r1", "My Version")
	_, err := e.SaveOffline(ctx, rec)
	require.NoError(t, err)

	server := record("r1", "Server Version")
	server.Version = 5
	require.NoError(t, st.SetConflict(ctx, "r1", server))

	require.NoError(t, e.ResolveConflict(ctx, "r1", true))

	got, err := st.Record(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got.ConflictData)
	require.Equal(t, "My Version", got.WineName)

	pending, err := e.HasOfflineData(ctx)
	require.NoError(t, err)
	require.True(t, pending, "resolved local version is queued for push")
}

func TestResolveConflict_ServerDoesNotRequeue(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	rec := record("r1", "My Version")
	_, err := e.SaveOffline(ctx, rec)
	require.NoError(t, err)

	server := record("r1", "Server Version")
	server.Version = 5
	require.NoError(t, st.SetConflict(ctx, "r1", server))

	require.NoError(t, e.ResolveConflict(ctx, "r1", false))

	got, err := st.Record(ctx, "r1")
	require.NoError(t, err)
	require.Nil(t, got.ConflictData)
	require.Equal(t, "Server Version", got.WineName)
	require.False(t, got.IsOffline)

	pending, err := e.HasOfflineData(ctx)
	require.NoError(t, err)
	require.False(t, pending, "server resolution leaves nothing to push")
}

func TestResolveConflict_WithoutConflictFails(t *testing.T) {
	e, _ := setupEngine(t, newFakeRemote())
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	require.ErrorIs(t, e.ResolveConflict(ctx, "r1", true), common.ErrorNoConflict)
}

func TestSetOnline_AutoDrainsAfterSettleDelay(t *testing.T) {
	fake := newFakeRemote()
	e, st := setupEngine(t, fake)
	ctx := context.Background()

	require.NoError(t, st.SetAutoSync(ctx, true))
	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	e.SetOnline(ctx, true)

	require.Eventually(t, func() bool {
		pending, err := st.HasPendingMutations(ctx)
		return err == nil && !pending
	}, time.Second, 10*time.Millisecond, "transition to online drains the queue")
}

func TestSetOnline_GoingOfflineIsInert(t *testing.T) {
	fake := newFakeRemote()
	e, _ := setupEngine(t, fake)
	ctx := context.Background()

	_, err := e.SaveOffline(ctx, record("r1", "Barolo"))
	require.NoError(t, err)

	e.SetOnline(ctx, false)
	require.False(t, e.IsOnline())

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, fake.Calls(), "no drain attempts while offline")
}

func TestStartWatcher_FollowsProbe(t *testing.T) {
	fake := newFakeRemote()
	e, _ := setupEngine(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go e.StartWatcher(ctx)

	require.Eventually(t, func() bool { return e.IsOnline() },
		time.Second, 5*time.Millisecond, "reachable remote flips the engine online")

	fake.mu.Lock()
	fake.pingErr = errors.New("unreachable")
	fake.mu.Unlock()

	require.Eventually(t, func() bool { return !e.IsOnline() },
		time.Second, 5*time.Millisecond, "unreachable remote flips the engine offline")
}
