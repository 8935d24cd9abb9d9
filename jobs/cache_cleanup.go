package jobs

import (
	"context"
	"time"

	"github.com/legalassist/status-gateway/services"
	"github.com/sirupsen/logrus"
)

// CacheCleanupJob removes expired rows from the persisted status cache. The
// store already ignores stale rows on read; this just keeps the table from
// accumulating dead slots.
type CacheCleanupJob struct {
	Persister services.StatusPersister
	TTL       time.Duration
}

func NewCacheCleanupJob(persister services.StatusPersister, ttl time.Duration) *CacheCleanupJob {
	return &CacheCleanupJob{Persister: persister, TTL: ttl}
}

func (j *CacheCleanupJob) Run() {
	logrus.Info("Starting Cache Cleanup Job")
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	removed, err := j.Persister.DeleteExpired(ctx, j.TTL)
	if err != nil {
		logrus.Errorf("Cache Cleanup Job failed: %v", err)
		return
	}

	logrus.Infof("Cache Cleanup Job completed: removed %d expired cache entries", removed)
}
