package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
)

// fakeFetcher is a scriptable StatusFetcher that counts upstream calls.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    int64
	snapshot *models.ApplicationStatusSnapshot
	err      error
	gate     chan struct{} // when non-nil, FetchStatus blocks until closed
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, token string) (*models.ApplicationStatusSnapshot, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	snapshot, err := f.snapshot, f.err
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return snapshot, err
}

func (f *fakeFetcher) callCount() int64 {
	return atomic.LoadInt64(&f.calls)
}

// waitForCalls blocks until the fetcher has seen at least want upstream calls.
func waitForCalls(t *testing.T, fetcher *fakeFetcher, want int64) {
	t.Helper()
	deadline := time.After(time.Second)
	for fetcher.callCount() < want {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d upstream calls, have %d", want, fetcher.callCount())
		case <-time.After(2 * time.Millisecond):
		}
	}
}

// fakePersister is an in-memory StatusPersister. lastStoreCtxErr records the
// state of the context the store handed to the most recent write.
type fakePersister struct {
	mu              sync.Mutex
	entries         map[string]*models.CacheEntry
	lastStoreCtxErr error
}

func newFakePersister() *fakePersister {
	return &fakePersister{entries: make(map[string]*models.CacheEntry)}
}

func (p *fakePersister) Load(ctx context.Context, userID string) (*models.CacheEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries[userID], nil
}

func (p *fakePersister) Store(ctx context.Context, userID string, entry *models.CacheEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastStoreCtxErr = ctx.Err()
	p.entries[userID] = entry
	return nil
}

func (p *fakePersister) Delete(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, userID)
	return nil
}

func (p *fakePersister) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	var removed int64
	for userID, entry := range p.entries {
		if entry.FetchedAt.Before(cutoff) {
			delete(p.entries, userID)
			removed++
		}
	}
	return removed, nil
}

func pendingSnapshot(version int) *models.ApplicationStatusSnapshot {
	return &models.ApplicationStatusSnapshot{
		HasApplication: true,
		Application: &models.LawyerApplication{
			Status:  models.StatusPending,
			Version: version,
		},
	}
}

func testSyncConfig() shared.SyncConfig {
	return shared.SyncConfig{
		StatusTTL:        5 * time.Minute,
		FetchTimeout:     2 * time.Second,
		PollInterval:     60 * time.Second,
		GuardWaitCeiling: 2 * time.Second,
	}
}

func newTestStore(fetcher StatusFetcher, persister StatusPersister) *StatusStore {
	return NewStatusStore(fetcher, persister, nil, shared.NewSyncMetrics("test"), testSyncConfig())
}

func TestGetStatusFetchesOnColdCache(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1)}
	store := newTestStore(fetcher, nil)

	snapshot := store.GetStatus(context.Background(), "user-1", "token")
	if snapshot == nil {
		t.Fatal("expected a snapshot, got nil")
	}
	if snapshot.Status() != models.StatusPending {
		t.Fatalf("expected pending status, got %q", snapshot.Status())
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fetcher.callCount())
	}
}

func TestGetStatusHonorsTTL(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1)}
	store := newTestStore(fetcher, nil)

	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	first := store.GetStatus(context.Background(), "user-1", "token")
	if first == nil {
		t.Fatal("expected a snapshot from the initial fetch")
	}

	// Just inside the TTL: served from memory, same object, no network.
	current = current.Add(store.TTL() - time.Second)
	second := store.GetStatus(context.Background(), "user-1", "token")
	if second != first {
		t.Fatal("expected the identical cached snapshot inside the TTL")
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected no second upstream call inside TTL, got %d total", fetcher.callCount())
	}

	// Past the TTL: a fresh fetch happens.
	current = current.Add(2 * time.Second)
	store.GetStatus(context.Background(), "user-1", "token")
	if fetcher.callCount() != 2 {
		t.Fatalf("expected a refetch after TTL expiry, got %d total calls", fetcher.callCount())
	}
}

func TestGetStatusCoalescesConcurrentCalls(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1), gate: make(chan struct{})}
	store := newTestStore(fetcher, nil)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*models.ApplicationStatusSnapshot, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = store.GetStatus(context.Background(), "user-1", "token")
		}(i)
	}

	// Give every caller time to reach the in-flight join, then release the
	// single upstream call.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	if fetcher.callCount() != 1 {
		t.Fatalf("expected exactly 1 upstream call for %d concurrent callers, got %d", callers, fetcher.callCount())
	}
	for i, result := range results {
		if result != results[0] {
			t.Fatalf("caller %d received a different snapshot", i)
		}
	}
	if results[0] == nil {
		t.Fatal("coalesced callers received nil")
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1)}
	persister := newFakePersister()
	store := newTestStore(fetcher, persister)

	store.GetStatus(context.Background(), "user-1", "token")
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 call after warmup, got %d", fetcher.callCount())
	}

	store.Invalidate(context.Background(), "user-1")

	if entry, _ := persister.Load(context.Background(), "user-1"); entry != nil {
		t.Fatal("expected persisted entry to be dropped by Invalidate")
	}

	store.GetStatus(context.Background(), "user-1", "token")
	if fetcher.callCount() != 2 {
		t.Fatalf("expected a refetch after Invalidate, got %d total calls", fetcher.callCount())
	}
}

func TestFetchFailureReturnsNilAndIsNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	store := newTestStore(fetcher, nil)

	if snapshot := store.GetStatus(context.Background(), "user-1", "token"); snapshot != nil {
		t.Fatal("expected nil snapshot on fetch failure")
	}
	if store.CachedSize() != 0 {
		t.Fatal("failures must not be cached")
	}

	// The failure was not cached, so the next call retries immediately.
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.snapshot = pendingSnapshot(1)
	fetcher.mu.Unlock()

	if snapshot := store.GetStatus(context.Background(), "user-1", "token"); snapshot == nil {
		t.Fatal("expected a snapshot once upstream recovered")
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("expected an immediate retry, got %d total calls", fetcher.callCount())
	}
}

func TestGetStatusPromotesPersistedEntry(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(2)}
	persister := newFakePersister()
	store := newTestStore(fetcher, persister)

	persisted := &models.CacheEntry{
		Snapshot:  pendingSnapshot(1),
		FetchedAt: time.Now(),
	}
	persister.Store(context.Background(), "user-1", persisted)

	snapshot := store.GetStatus(context.Background(), "user-1", "token")
	if snapshot != persisted.Snapshot {
		t.Fatal("expected the persisted snapshot to be promoted")
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("expected no upstream call when persisted entry is fresh, got %d", fetcher.callCount())
	}
	if store.CachedSize() != 1 {
		t.Fatal("expected the persisted entry to be promoted into memory")
	}
}

func TestGetStatusIgnoresStalePersistedEntry(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(2)}
	persister := newFakePersister()
	store := newTestStore(fetcher, persister)

	persister.Store(context.Background(), "user-1", &models.CacheEntry{
		Snapshot:  pendingSnapshot(1),
		FetchedAt: time.Now().Add(-time.Hour),
	})

	snapshot := store.GetStatus(context.Background(), "user-1", "token")
	if snapshot == nil || snapshot.Application.Version != 2 {
		t.Fatal("expected a fresh upstream fetch past a stale persisted entry")
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected 1 upstream call, got %d", fetcher.callCount())
	}
}

func TestGetStatusFailsOpenOnSlowFetch(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1), gate: make(chan struct{})}
	store := newTestStore(fetcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if snapshot := store.GetStatus(ctx, "user-1", "token"); snapshot != nil {
		t.Fatal("expected nil when the fetch outlives the caller's deadline")
	}

	// The detached fetch still completes and lands in the cache.
	close(fetcher.gate)

	deadline := time.After(time.Second)
	for store.CachedSize() == 0 {
		select {
		case <-deadline:
			t.Fatal("detached fetch never populated the cache")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if snapshot := store.GetStatus(context.Background(), "user-1", "token"); snapshot == nil {
		t.Fatal("expected the detached fetch result to serve later callers")
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected the later call to hit the cache, got %d upstream calls", fetcher.callCount())
	}
}

func TestInvalidateDetachesInflightFetch(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1), gate: make(chan struct{})}
	persister := newFakePersister()
	store := newTestStore(fetcher, persister)

	// A reader starts a fetch that is still on the wire when the mutation
	// lands.
	firstResult := make(chan *models.ApplicationStatusSnapshot, 1)
	go func() {
		firstResult <- store.GetStatus(context.Background(), "user-1", "token")
	}()
	waitForCalls(t, fetcher, 1)

	store.Invalidate(context.Background(), "user-1")

	// The mutation changed the authoritative state; readers arriving after
	// the invalidation must reach upstream again rather than join the
	// pre-mutation fetch.
	fetcher.mu.Lock()
	fetcher.snapshot = pendingSnapshot(2)
	fetcher.mu.Unlock()

	secondResult := make(chan *models.ApplicationStatusSnapshot, 1)
	go func() {
		secondResult <- store.GetStatus(context.Background(), "user-1", "token")
	}()
	waitForCalls(t, fetcher, 2)

	close(fetcher.gate)

	first := <-firstResult
	second := <-secondResult

	if first == nil || first.Application.Version != 1 {
		t.Fatalf("pre-invalidation caller should see its own fetch, got %+v", first)
	}
	if second == nil || second.Application.Version != 2 {
		t.Fatalf("post-invalidation caller must see the fresh fetch, got %+v", second)
	}

	// Only the post-invalidation result may land in either tier.
	if cached := store.GetStatus(context.Background(), "user-1", "token"); cached == nil || cached.Application.Version != 2 {
		t.Fatalf("cache holds the superseded snapshot, got %+v", cached)
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("expected exactly 2 upstream calls, got %d", fetcher.callCount())
	}
	persisted, _ := persister.Load(context.Background(), "user-1")
	if persisted == nil || persisted.Snapshot.Application.Version != 2 {
		t.Fatalf("persisted tier holds the superseded snapshot, got %+v", persisted)
	}
}

// exhaustedDeadlineFetcher returns successfully only once its context has run
// out, simulating a fetch that spends its entire deadline on the wire.
type exhaustedDeadlineFetcher struct {
	snapshot *models.ApplicationStatusSnapshot
}

func (f exhaustedDeadlineFetcher) FetchStatus(ctx context.Context, token string) (*models.ApplicationStatusSnapshot, error) {
	<-ctx.Done()
	return f.snapshot, nil
}

func TestPersistSurvivesExhaustedFetchDeadline(t *testing.T) {
	persister := newFakePersister()
	cfg := testSyncConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	store := NewStatusStore(exhaustedDeadlineFetcher{snapshot: pendingSnapshot(1)}, persister, nil, shared.NewSyncMetrics("test"), cfg)

	snapshot := store.GetStatus(context.Background(), "user-1", "token")
	if snapshot == nil {
		t.Fatal("expected the fetch result despite the exhausted deadline")
	}

	persister.mu.Lock()
	entry, ctxErr := persister.entries["user-1"], persister.lastStoreCtxErr
	persister.mu.Unlock()

	if entry == nil {
		t.Fatal("expected the snapshot to be persisted")
	}
	if ctxErr != nil {
		t.Fatalf("persist ran on a dead context: %v", ctxErr)
	}
}

func TestCacheIsolatedPerUser(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: pendingSnapshot(1)}
	store := newTestStore(fetcher, nil)

	store.GetStatus(context.Background(), "user-1", "token-1")
	store.GetStatus(context.Background(), "user-2", "token-2")

	if fetcher.callCount() != 2 {
		t.Fatalf("expected one upstream call per user, got %d", fetcher.callCount())
	}
}
