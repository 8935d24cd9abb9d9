package jobs

import (
	"time"

	"github.com/legalassist/status-gateway/services"
	"github.com/sirupsen/logrus"
)

// SessionReaperJob drops sessions that have gone quiet so the poller stops
// fetching for clients that are no longer there.
type SessionReaperJob struct {
	Navigator  *services.Navigator
	IdleWindow time.Duration
}

func NewSessionReaperJob(navigator *services.Navigator, idleWindow time.Duration) *SessionReaperJob {
	return &SessionReaperJob{Navigator: navigator, IdleWindow: idleWindow}
}

func (j *SessionReaperJob) Run() {
	logrus.Info("Starting Session Reaper Job")

	reaped := j.Navigator.ReapIdle(j.IdleWindow)

	logrus.Infof("Session Reaper Job completed: dropped %d idle sessions", reaped)
}
