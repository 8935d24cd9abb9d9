package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// UpstreamRateLimiter enforces a minimum delay between calls to the platform
// API. The gateway is a low-frequency status checker; the delay exists for
// politeness toward the upstream, not throughput shaping.
type UpstreamRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewUpstreamRateLimiter creates a rate limiter with the given minimum delay
// between consecutive upstream calls.
func NewUpstreamRateLimiter(minimumDelay time.Duration) *UpstreamRateLimiter {
	return &UpstreamRateLimiter{
		minimumDelay:    minimumDelay,
		lastRequestTime: time.Now().Add(-minimumDelay),
	}
}

// Wait blocks until the minimum delay has elapsed since the previous call.
func (limiter *UpstreamRateLimiter) Wait() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	elapsed := time.Since(limiter.lastRequestTime)
	if elapsed < limiter.minimumDelay {
		remaining := limiter.minimumDelay - elapsed

		logrus.WithFields(logrus.Fields{
			"component":       "UpstreamRateLimiter",
			"elapsed_time":    elapsed,
			"minimum_delay":   limiter.minimumDelay,
			"remaining_delay": remaining,
		}).Debug("Enforcing upstream rate limit delay")

		time.Sleep(remaining)
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// RequestCount returns the total number of upstream calls let through.
func (limiter *UpstreamRateLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
