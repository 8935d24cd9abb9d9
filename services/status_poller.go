package services

import (
	"context"
	"sync"
	"time"

	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// SnapshotCallback receives every polled snapshot for a user, including nil
// when the fetch failed.
type SnapshotCallback func(userID string, snapshot *models.ApplicationStatusSnapshot)

// StatusPoller periodically refreshes the status of every tracked session
// through the store and pushes the results to subscribers and the navigator.
// The ticker goroutine is owned by Start/Stop and released deterministically;
// Start while running is a no-op, Stop when stopped is safe.
type StatusPoller struct {
	store     *StatusStore
	navigator *Navigator
	interval  time.Duration
	metrics   *shared.SyncMetrics

	mutex       sync.Mutex
	running     bool
	stop        chan struct{}
	subscribers map[int64]SnapshotCallback
	nextSubID   int64
}

// NewStatusPoller creates a poller over the given store and session registry.
func NewStatusPoller(store *StatusStore, navigator *Navigator, metrics *shared.SyncMetrics, cfg shared.SyncConfig) *StatusPoller {
	return &StatusPoller{
		store:       store,
		navigator:   navigator,
		interval:    cfg.PollInterval,
		metrics:     metrics,
		subscribers: make(map[int64]SnapshotCallback),
	}
}

// Start begins the polling loop. Idempotent.
func (p *StatusPoller) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})

	logrus.WithFields(logrus.Fields{
		"component": "StatusPoller",
		"interval":  p.interval,
	}).Info("Status poller started")

	go p.runLoop(p.stop)
}

// Stop cancels the polling loop. Safe to call when not started.
func (p *StatusPoller) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.running {
		return
	}
	p.running = false
	close(p.stop)

	logrus.WithField("component", "StatusPoller").Info("Status poller stopped")
}

// Running reports whether the polling loop is active.
func (p *StatusPoller) Running() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.running
}

// Subscribe registers a callback for every polled snapshot and returns the
// function that removes exactly this subscription.
func (p *StatusPoller) Subscribe(callback SnapshotCallback) func() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = callback

	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		delete(p.subscribers, id)
	}
}

func (p *StatusPoller) runLoop(stop chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Tick(context.Background())
		case <-stop:
			return
		}
	}
}

// Tick performs one polling cycle over every active session. Fetches for the
// same user coalesce inside the store, so multiple sessions of one user cost
// a single upstream call per cycle.
func (p *StatusPoller) Tick(ctx context.Context) {
	p.metrics.RecordPollTick()

	sessions := p.navigator.ActiveSessions()
	if len(sessions) == 0 {
		return
	}

	delivered := make(map[string]*models.ApplicationStatusSnapshot, len(sessions))
	for _, session := range sessions {
		snapshot, seen := delivered[session.UserID]
		if !seen {
			snapshot = p.store.GetStatus(ctx, session.UserID, session.Token)
			delivered[session.UserID] = snapshot
			p.publish(session.UserID, snapshot)
		}
		p.navigator.Deliver(session.ID, snapshot)
	}

	logrus.WithFields(logrus.Fields{
		"component": "StatusPoller",
		"sessions":  len(sessions),
		"users":     len(delivered),
	}).Debug("Poll cycle completed")
}

// publish invokes every subscriber with the polled snapshot, nil included.
func (p *StatusPoller) publish(userID string, snapshot *models.ApplicationStatusSnapshot) {
	p.mutex.Lock()
	callbacks := make([]SnapshotCallback, 0, len(p.subscribers))
	for _, callback := range p.subscribers {
		callbacks = append(callbacks, callback)
	}
	p.mutex.Unlock()

	for _, callback := range callbacks {
		callback(userID, snapshot)
	}
}
