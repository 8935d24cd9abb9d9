package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the closed set of review states a lawyer application
// moves through on the platform.
type ApplicationStatus string

const (
	StatusPending      ApplicationStatus = "pending"
	StatusResubmission ApplicationStatus = "resubmission"
	StatusRejected     ApplicationStatus = "rejected"
	StatusAccepted     ApplicationStatus = "accepted"
)

// IsValid reports whether s is one of the four known review states.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusResubmission, StatusRejected, StatusAccepted:
		return true
	}
	return false
}

// LawyerApplication is the review record attached to a user who applied for
// verified-lawyer standing. Version starts at 1 and increments on every
// resubmission cycle.
type LawyerApplication struct {
	ID           uuid.UUID         `json:"id"`
	Status       ApplicationStatus `json:"status"`
	Version      int               `json:"version"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	Acknowledged bool              `json:"acknowledged"`
	AdminNotes   *string           `json:"admin_notes,omitempty"`
}

// ApplicationStatusSnapshot is one immutable read of the server-authoritative
// application state for a single user. Application is non-nil iff
// HasApplication is true.
type ApplicationStatusSnapshot struct {
	HasApplication bool               `json:"has_application"`
	Application    *LawyerApplication `json:"application,omitempty"`
	CanApply       bool               `json:"can_apply"`
	IsBlocked      bool               `json:"is_blocked"`
	LastRejectedAt *time.Time         `json:"last_rejected_at,omitempty"`
}

// Status returns the review status carried by the snapshot, or empty when no
// application record exists.
func (s *ApplicationStatusSnapshot) Status() ApplicationStatus {
	if s == nil || s.Application == nil {
		return ""
	}
	return s.Application.Status
}

// IsAcknowledgedRejection reports whether the snapshot carries a rejected
// application the user has already acknowledged. The server keeps the status
// field at "rejected"; acknowledgement is a display-level terminal state.
func (s *ApplicationStatusSnapshot) IsAcknowledgedRejection() bool {
	return s != nil && s.Application != nil &&
		s.Application.Status == StatusRejected && s.Application.Acknowledged
}
