package models

import "time"

// CacheEntry holds one cached status snapshot together with the time it was
// fetched from the platform. Entries are replaced whole on every successful
// fetch, never patched field by field.
type CacheEntry struct {
	Snapshot  *ApplicationStatusSnapshot `json:"data"`
	FetchedAt time.Time                  `json:"timestamp"`
}

// IsFresh reports whether the entry is still usable without a refetch at the
// given instant.
func (ce *CacheEntry) IsFresh(ttl time.Duration, now time.Time) bool {
	return ce != nil && now.Sub(ce.FetchedAt) < ttl
}
