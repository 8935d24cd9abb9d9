package models

import "fmt"

// Screen describes one client screen: where it lives and the static copy the
// client renders for it. Status screens are resolved through a closed lookup
// table instead of conditional chains so a new status cannot silently fall
// through to the wrong screen.
type Screen struct {
	Path        string `json:"path"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Well-known screen paths. The four status paths are the only ones the
// poller will ever redirect between.
const (
	PathPending      = "/application/pending"
	PathResubmission = "/application/resubmission"
	PathRejected     = "/application/rejected"
	PathAccepted     = "/application/accepted"
	PathAcknowledged = "/application/rejected-acknowledged"
	PathDashboard    = "/lawyer/dashboard"
	PathHome         = "/home"
	PathLogin        = "/login"
)

var statusScreens = map[ApplicationStatus]Screen{
	StatusPending: {
		Path:        PathPending,
		Icon:        "clock",
		Title:       "Application Under Review",
		Description: "Your lawyer application has been received and is being reviewed.",
	},
	StatusResubmission: {
		Path:        PathResubmission,
		Icon:        "refresh",
		Title:       "Resubmission Under Review",
		Description: "Your updated documents are being reviewed again.",
	},
	StatusRejected: {
		Path:        PathRejected,
		Icon:        "x-circle",
		Title:       "Application Rejected",
		Description: "Your lawyer application was not approved. Review the notes below.",
	},
	StatusAccepted: {
		Path:        PathAccepted,
		Icon:        "check-circle",
		Title:       "Application Accepted",
		Description: "Congratulations, your lawyer application has been approved.",
	},
}

// AcknowledgedScreen is the terminal screen shown after a user acknowledges a
// rejection. It has no pollable status behind it and is never guarded.
var AcknowledgedScreen = Screen{
	Path:        PathAcknowledged,
	Icon:        "archive",
	Title:       "Rejection Acknowledged",
	Description: "You have acknowledged the outcome of your application.",
}

var pathToStatus = func() map[string]ApplicationStatus {
	m := make(map[string]ApplicationStatus, len(statusScreens))
	for status, screen := range statusScreens {
		m[screen.Path] = status
	}
	return m
}()

// ScreenForStatus returns the screen owning the given status. The second
// return is false for the empty or an unknown status.
func ScreenForStatus(status ApplicationStatus) (Screen, bool) {
	screen, ok := statusScreens[status]
	return screen, ok
}

// StatusForPath resolves a screen path back to the status it implies. Only
// the four status-specific paths resolve; everything else returns false.
func StatusForPath(path string) (ApplicationStatus, bool) {
	status, ok := pathToStatus[path]
	return status, ok
}

// IsStatusScreenPath reports whether the path belongs to one of the four
// status-specific screens.
func IsStatusScreenPath(path string) bool {
	_, ok := pathToStatus[path]
	return ok
}

// ScreenForSnapshot maps any snapshot, including nil, to the screen the user
// belongs on. A nil or empty snapshot maps to the pending screen, matching
// the guard's treatment of "no application yet". An acknowledged rejection
// maps to the terminal acknowledged screen, not the plain rejected one.
func ScreenForSnapshot(snapshot *ApplicationStatusSnapshot) Screen {
	if snapshot == nil || snapshot.Application == nil {
		return statusScreens[StatusPending]
	}
	if snapshot.IsAcknowledgedRejection() {
		return AcknowledgedScreen
	}
	if screen, ok := statusScreens[snapshot.Application.Status]; ok {
		return screen
	}
	return statusScreens[StatusPending]
}

// ScreenCopy returns the screen with snapshot-dependent copy applied, e.g.
// the resubmission version counter in the title.
func ScreenCopy(snapshot *ApplicationStatusSnapshot) Screen {
	screen := ScreenForSnapshot(snapshot)
	if snapshot != nil && snapshot.Application != nil &&
		snapshot.Application.Status == StatusResubmission && snapshot.Application.Version > 1 {
		screen.Title = fmt.Sprintf("Resubmission Under Review (Version %d)", snapshot.Application.Version)
	}
	return screen
}
