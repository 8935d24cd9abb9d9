package services

import (
	"context"
	"sync"
	"time"

	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// StatusStore is the single accessor for cached application-status snapshots.
// It owns the two cache tiers (in-memory and persisted), the TTL freshness
// window, and in-flight request coalescing, so that N concurrent readers of
// one user's status cost at most one upstream call.
//
// All upstream and storage failures are swallowed here and surfaced to
// callers as a nil snapshot: nil means "unknown", never "no application".
type StatusStore struct {
	fetcher   StatusFetcher
	persister StatusPersister   // optional; nil runs memory-only
	auditor   TransitionAuditor // optional
	metrics   *shared.SyncMetrics

	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	mutex    sync.Mutex
	entries  map[string]*models.CacheEntry
	inflight map[string]*inflightFetch
}

// inflightFetch is one upstream fetch shared by every caller that arrived
// while it was running. snapshot is only read after done is closed.
type inflightFetch struct {
	done     chan struct{}
	snapshot *models.ApplicationStatusSnapshot
}

// NewStatusStore creates a status store. persister and auditor may be nil.
func NewStatusStore(fetcher StatusFetcher, persister StatusPersister, auditor TransitionAuditor, metrics *shared.SyncMetrics, cfg shared.SyncConfig) *StatusStore {
	return &StatusStore{
		fetcher:      fetcher,
		persister:    persister,
		auditor:      auditor,
		metrics:      metrics,
		ttl:          cfg.StatusTTL,
		fetchTimeout: cfg.FetchTimeout,
		now:          time.Now,
		entries:      make(map[string]*models.CacheEntry),
		inflight:     make(map[string]*inflightFetch),
	}
}

// GetStatus returns the current snapshot for the user, trying the memory
// tier, then the persisted tier, then joining any in-flight fetch, and only
// then calling upstream. Returns nil when the status cannot be determined
// before ctx expires; the fetch itself keeps running on its own deadline and
// still populates the cache for later callers.
func (s *StatusStore) GetStatus(ctx context.Context, userID, token string) *models.ApplicationStatusSnapshot {
	s.mutex.Lock()
	if entry, ok := s.entries[userID]; ok && entry.IsFresh(s.ttl, s.now()) {
		snapshot := entry.Snapshot
		s.mutex.Unlock()
		s.metrics.RecordMemoryHit()
		return snapshot
	}
	s.mutex.Unlock()

	if s.persister != nil {
		if entry, err := s.persister.Load(ctx, userID); err != nil {
			shared.WrapError(err, shared.ErrorCategoryDatabase, "PERSISTED_LOAD_FAILED", "GetStatus", true).LogError()
		} else if entry.IsFresh(s.ttl, s.now()) {
			s.mutex.Lock()
			s.entries[userID] = entry
			s.mutex.Unlock()
			s.metrics.RecordPersistentHit()
			return entry.Snapshot
		}
	}

	s.mutex.Lock()
	if call, ok := s.inflight[userID]; ok {
		s.mutex.Unlock()
		s.metrics.RecordCoalesced()
		return awaitFetch(ctx, call)
	}

	call := &inflightFetch{done: make(chan struct{})}
	s.inflight[userID] = call
	previous := s.entries[userID]
	s.mutex.Unlock()

	go s.runFetch(userID, token, call, previous)

	return awaitFetch(ctx, call)
}

// awaitFetch waits for the shared fetch to finish or the caller's context to
// expire, whichever is first.
func awaitFetch(ctx context.Context, call *inflightFetch) *models.ApplicationStatusSnapshot {
	select {
	case <-call.done:
		return call.snapshot
	case <-ctx.Done():
		return nil
	}
}

// runFetch performs the single upstream fetch for every coalesced caller. It
// runs on its own bounded deadline, detached from any caller context, so the
// result still lands in the cache when the initiating caller gave up.
func (s *StatusStore) runFetch(userID, token string, call *inflightFetch, previous *models.CacheEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	start := time.Now()
	snapshot, err := s.fetcher.FetchStatus(ctx, token)
	s.metrics.RecordFetch(err == nil, time.Since(start))

	if err != nil {
		// Failures are never cached: the next call retries immediately.
		shared.WrapError(err, shared.ErrorCategoryUpstream, "STATUS_FETCH_FAILED", "runFetch", shared.IsRetryableError(err)).LogError()
		snapshot = nil
	} else {
		entry := &models.CacheEntry{Snapshot: snapshot, FetchedAt: s.now()}

		// Invalidate detaches the in-flight slot; a fetch whose slot is
		// gone or replaced started before that invalidation and its result
		// must not repopulate either tier.
		s.mutex.Lock()
		current := s.inflight[userID] == call
		if current {
			s.entries[userID] = entry
		}
		s.mutex.Unlock()

		if current {
			// The fetch may have eaten most of its own deadline; the
			// writes behind it get a fresh one.
			writeCtx, cancelWrite := context.WithTimeout(context.Background(), s.fetchTimeout)
			if s.persister != nil {
				if persistErr := s.persister.Store(writeCtx, userID, entry); persistErr != nil {
					shared.WrapError(persistErr, shared.ErrorCategoryDatabase, "PERSISTED_STORE_FAILED", "runFetch", true).LogError()
				}
			}
			s.recordTransition(writeCtx, userID, previous, snapshot)
			cancelWrite()
		} else {
			logrus.WithFields(logrus.Fields{
				"component": "StatusStore",
				"user_id":   userID,
			}).Debug("Discarding snapshot from a fetch superseded by invalidation")
		}
	}

	call.snapshot = snapshot
	close(call.done)

	s.mutex.Lock()
	if s.inflight[userID] == call {
		delete(s.inflight, userID)
	}
	s.mutex.Unlock()
}

// recordTransition writes an audit row when the authoritative status moved
// since the last snapshot we held, stale or not. Best effort.
func (s *StatusStore) recordTransition(ctx context.Context, userID string, previous *models.CacheEntry, snapshot *models.ApplicationStatusSnapshot) {
	if s.auditor == nil || previous == nil {
		return
	}

	fromStatus := previous.Snapshot.Status()
	toStatus := snapshot.Status()
	if fromStatus == toStatus {
		return
	}

	version := 0
	if snapshot != nil && snapshot.Application != nil {
		version = snapshot.Application.Version
	}

	err := s.auditor.RecordTransition(ctx, &models.StatusTransitionLog{
		UserID:     userID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Version:    version,
		Source:     "status_fetch",
		ObservedAt: s.now(),
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "StatusStore",
			"user_id":   userID,
			"cause":     err,
		}).Warn("Failed to record status transition")
	}
}

// Invalidate drops both cache tiers for the user unconditionally and detaches
// any in-flight fetch, so the next GetStatus starts a fresh upstream call
// instead of joining one that began before the mutation. Must be called after
// any mutation that can change server-side status.
func (s *StatusStore) Invalidate(ctx context.Context, userID string) {
	s.mutex.Lock()
	delete(s.entries, userID)
	delete(s.inflight, userID)
	s.mutex.Unlock()

	if s.persister != nil {
		if err := s.persister.Delete(ctx, userID); err != nil {
			shared.WrapError(err, shared.ErrorCategoryDatabase, "PERSISTED_DELETE_FAILED", "Invalidate", true).LogError()
		}
	}

	s.metrics.RecordInvalidation()

	logrus.WithFields(logrus.Fields{
		"component": "StatusStore",
		"user_id":   userID,
	}).Debug("Status cache invalidated")
}

// CachedSize returns the number of users with an in-memory entry.
func (s *StatusStore) CachedSize() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// TTL returns the freshness window applied to cache entries.
func (s *StatusStore) TTL() time.Duration {
	return s.ttl
}
