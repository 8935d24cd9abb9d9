package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// Session is one client session tracked by the navigator: who it belongs to,
// which screen it is looking at, and at most one pending navigation replace.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Token       string    `json:"-"`
	CurrentPath string    `json:"current_path"`
	LastSeen    time.Time `json:"last_seen"`

	pendingRedirect *RedirectDirective
}

// RedirectDirective is a one-shot navigation replace instruction for a
// session. Collected exactly once; collecting it removes it.
type RedirectDirective struct {
	TargetPath string                   `json:"target_path"`
	Status     models.ApplicationStatus `json:"status,omitempty"`
	IssuedAt   time.Time                `json:"issued_at"`
}

// Navigator owns the session registry. The poller delivers snapshots into it
// and it decides, per session, whether a redirect directive is due. A
// directive is only issued when the session sits on one of the status-specific
// screens and the authoritative status points somewhere else; the same target
// is never issued twice in a row (idempotent redirect).
type Navigator struct {
	mutex    sync.Mutex
	sessions map[string]*Session
	metrics  *shared.SyncMetrics
}

// NewNavigator creates an empty session registry.
func NewNavigator(metrics *shared.SyncMetrics) *Navigator {
	return &Navigator{
		sessions: make(map[string]*Session),
		metrics:  metrics,
	}
}

// Register adds a session and returns its generated ID.
func (n *Navigator) Register(userID, token, currentPath string) *Session {
	session := &Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		Token:       token,
		CurrentPath: currentPath,
		LastSeen:    time.Now(),
	}

	n.mutex.Lock()
	n.sessions[session.ID] = session
	n.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"component":  "Navigator",
		"session_id": session.ID,
		"user_id":    userID,
		"path":       currentPath,
	}).Debug("Session registered")

	return session
}

// UpdatePath records that the session navigated. Navigation clears any
// pending directive: the client either followed it or went somewhere else on
// its own, and a stale directive must not fire later.
func (n *Navigator) UpdatePath(sessionID, path string) bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	session, ok := n.sessions[sessionID]
	if !ok {
		return false
	}
	session.CurrentPath = path
	session.LastSeen = time.Now()
	session.pendingRedirect = nil
	return true
}

// Deliver hands a polled snapshot to a session and issues a redirect
// directive when due. A nil snapshot means the status is unknown; unknown is
// never treated as a mismatch.
func (n *Navigator) Deliver(sessionID string, snapshot *models.ApplicationStatusSnapshot) {
	if snapshot == nil {
		return
	}

	n.mutex.Lock()
	defer n.mutex.Unlock()

	session, ok := n.sessions[sessionID]
	if !ok {
		return
	}
	if !models.IsStatusScreenPath(session.CurrentPath) {
		return
	}

	target := models.ScreenForSnapshot(snapshot)
	if target.Path == session.CurrentPath {
		return
	}
	if session.pendingRedirect != nil && session.pendingRedirect.TargetPath == target.Path {
		return
	}

	session.pendingRedirect = &RedirectDirective{
		TargetPath: target.Path,
		Status:     snapshot.Status(),
		IssuedAt:   time.Now(),
	}
	n.metrics.RecordRedirect()

	logrus.WithFields(logrus.Fields{
		"component":  "Navigator",
		"session_id": sessionID,
		"from_path":  session.CurrentPath,
		"to_path":    target.Path,
	}).Info("Redirect directive issued")
}

// CollectRedirect pops the pending directive for a session, if any.
func (n *Navigator) CollectRedirect(sessionID string) (*RedirectDirective, bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	session, ok := n.sessions[sessionID]
	if !ok || session.pendingRedirect == nil {
		return nil, false
	}
	directive := session.pendingRedirect
	session.pendingRedirect = nil
	session.LastSeen = time.Now()
	return directive, true
}

// Remove drops a session.
func (n *Navigator) Remove(sessionID string) {
	n.mutex.Lock()
	delete(n.sessions, sessionID)
	n.mutex.Unlock()
}

// ActiveSessions returns a copy of the current sessions for the poller to
// iterate without holding the registry lock across fetches.
func (n *Navigator) ActiveSessions() []Session {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	sessions := make([]Session, 0, len(n.sessions))
	for _, session := range n.sessions {
		sessions = append(sessions, *session)
	}
	return sessions
}

// SessionCount returns the number of tracked sessions.
func (n *Navigator) SessionCount() int {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return len(n.sessions)
}

// ReapIdle removes sessions idle longer than the window and returns how many
// were dropped.
func (n *Navigator) ReapIdle(window time.Duration) int {
	cutoff := time.Now().Add(-window)

	n.mutex.Lock()
	defer n.mutex.Unlock()

	reaped := 0
	for id, session := range n.sessions {
		if session.LastSeen.Before(cutoff) {
			delete(n.sessions, id)
			reaped++
		}
	}

	if reaped > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "Navigator",
			"reaped":    reaped,
		}).Info("Reaped idle sessions")
	}
	return reaped
}
