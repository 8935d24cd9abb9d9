package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SyncMetrics tracks what the status-sync pipeline is doing: upstream
// fetches, cache behavior, coalescing, and redirects issued. One instance is
// shared by the store, poller, and guard.
type SyncMetrics struct {
	ServiceName string `json:"service_name"`

	FetchTotal     int64 `json:"fetch_total"`
	FetchFailures  int64 `json:"fetch_failures"`
	MemoryHits     int64 `json:"memory_hits"`
	PersistentHits int64 `json:"persistent_hits"`
	CoalescedCalls int64 `json:"coalesced_calls"`
	Invalidations  int64 `json:"invalidations"`

	PollTicks       int64 `json:"poll_ticks"`
	RedirectsIssued int64 `json:"redirects_issued"`
	GuardFailOpens  int64 `json:"guard_fail_opens"`

	TotalFetchTime   time.Duration `json:"total_fetch_time"`
	AverageFetchTime time.Duration `json:"average_fetch_time"`
	LastUpdated      time.Time     `json:"last_updated"`

	mutex sync.RWMutex
}

// NewSyncMetrics creates a metrics tracker for the named service.
func NewSyncMetrics(serviceName string) *SyncMetrics {
	return &SyncMetrics{
		ServiceName: serviceName,
		LastUpdated: time.Now(),
	}
}

// RecordFetch records one upstream fetch with its outcome and duration.
func (m *SyncMetrics) RecordFetch(success bool, fetchTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.FetchTotal++
	m.TotalFetchTime += fetchTime
	m.AverageFetchTime = time.Duration(int64(m.TotalFetchTime) / m.FetchTotal)
	if !success {
		m.FetchFailures++
	}
	m.LastUpdated = time.Now()
}

// RecordMemoryHit counts a request served from the in-memory tier.
func (m *SyncMetrics) RecordMemoryHit() { m.increment(&m.MemoryHits) }

// RecordPersistentHit counts a request served from the persisted tier.
func (m *SyncMetrics) RecordPersistentHit() { m.increment(&m.PersistentHits) }

// RecordCoalesced counts a caller attached to an already in-flight fetch.
func (m *SyncMetrics) RecordCoalesced() { m.increment(&m.CoalescedCalls) }

// RecordInvalidation counts an explicit cache invalidation.
func (m *SyncMetrics) RecordInvalidation() { m.increment(&m.Invalidations) }

// RecordPollTick counts one poller cycle.
func (m *SyncMetrics) RecordPollTick() { m.increment(&m.PollTicks) }

// RecordRedirect counts one navigation replace directive issued.
func (m *SyncMetrics) RecordRedirect() { m.increment(&m.RedirectsIssued) }

// RecordFailOpen counts a guard decision that failed open after a fetch
// timeout or error.
func (m *SyncMetrics) RecordFailOpen() { m.increment(&m.GuardFailOpens) }

func (m *SyncMetrics) increment(counter *int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	*counter++
	m.LastUpdated = time.Now()
}

// FetchSuccessRate returns the upstream fetch success rate as a percentage.
func (m *SyncMetrics) FetchSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.FetchTotal == 0 {
		return 0.0
	}
	return float64(m.FetchTotal-m.FetchFailures) / float64(m.FetchTotal) * 100.0
}

// GetSnapshot returns a thread-safe copy of the current counters.
func (m *SyncMetrics) GetSnapshot() SyncMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return SyncMetrics{
		ServiceName:      m.ServiceName,
		FetchTotal:       m.FetchTotal,
		FetchFailures:    m.FetchFailures,
		MemoryHits:       m.MemoryHits,
		PersistentHits:   m.PersistentHits,
		CoalescedCalls:   m.CoalescedCalls,
		Invalidations:    m.Invalidations,
		PollTicks:        m.PollTicks,
		RedirectsIssued:  m.RedirectsIssued,
		GuardFailOpens:   m.GuardFailOpens,
		TotalFetchTime:   m.TotalFetchTime,
		AverageFetchTime: m.AverageFetchTime,
		LastUpdated:      m.LastUpdated,
	}
}

// LogSummary logs a metrics summary with structured fields.
func (m *SyncMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":       snapshot.ServiceName,
		"fetch_total":        snapshot.FetchTotal,
		"fetch_failures":     snapshot.FetchFailures,
		"fetch_success_rate": m.FetchSuccessRate(),
		"memory_hits":        snapshot.MemoryHits,
		"persistent_hits":    snapshot.PersistentHits,
		"coalesced_calls":    snapshot.CoalescedCalls,
		"invalidations":      snapshot.Invalidations,
		"poll_ticks":         snapshot.PollTicks,
		"redirects_issued":   snapshot.RedirectsIssued,
		"guard_fail_opens":   snapshot.GuardFailOpens,
		"average_fetch_time": snapshot.AverageFetchTime,
		"last_updated":       snapshot.LastUpdated,
	}).Info("Status sync metrics summary")
}

// Reset resets all counters to zero.
func (m *SyncMetrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.FetchTotal = 0
	m.FetchFailures = 0
	m.MemoryHits = 0
	m.PersistentHits = 0
	m.CoalescedCalls = 0
	m.Invalidations = 0
	m.PollTicks = 0
	m.RedirectsIssued = 0
	m.GuardFailOpens = 0
	m.TotalFetchTime = 0
	m.AverageFetchTime = 0
	m.LastUpdated = time.Now()

	logrus.WithField("service_name", m.ServiceName).Info("Status sync metrics reset")
}
