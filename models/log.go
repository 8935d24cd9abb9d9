package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusTransitionLog records one authoritative status change observed by the
// poller or a guard fetch. Rows are written fire-and-forget for audit; they
// never feed back into guard decisions.
type StatusTransitionLog struct {
	ID         uuid.UUID         `json:"id"`
	UserID     string            `json:"user_id"`
	FromStatus ApplicationStatus `json:"from_status"`
	ToStatus   ApplicationStatus `json:"to_status"`
	Version    int               `json:"version"`
	Source     string            `json:"source"`
	ObservedAt time.Time         `json:"observed_at"`
}
