package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
	"github.com/legalassist/status-gateway/shared"
)

// guardFetcher is a scriptable upstream for guard tests.
type guardFetcher struct {
	mu       sync.Mutex
	snapshot *models.ApplicationStatusSnapshot
	err      error
	delay    time.Duration
}

func (f *guardFetcher) FetchStatus(ctx context.Context, token string) (*models.ApplicationStatusSnapshot, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.err
}

func guardTestConfig() shared.SyncConfig {
	return shared.SyncConfig{
		StatusTTL:        5 * time.Minute,
		FetchTimeout:     time.Second,
		PollInterval:     time.Minute,
		GuardWaitCeiling: 50 * time.Millisecond,
	}
}

// newGuardApp builds a fiber app with the pending screen behind the guard and
// a middleware that injects the given identity, standing in for the auth
// middleware.
func newGuardApp(fetcher services.StatusFetcher, identity *models.Identity) *fiber.App {
	metrics := shared.NewSyncMetrics("test")
	cfg := guardTestConfig()
	store := services.NewStatusStore(fetcher, nil, nil, metrics, cfg)
	guard := NewStatusGuard(store, metrics, cfg)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if identity != nil {
			c.Locals(LocalIdentity, identity)
			c.Locals(LocalToken, "test-token")
		}
		return c.Next()
	})
	app.Get(models.PathPending, guard.RequireStatus(models.StatusPending), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	return app
}

func pendingApplicant() *models.Identity {
	return &models.Identity{
		UserID:        "user-1",
		Role:          models.RoleUser,
		PendingLawyer: true,
	}
}

func snapshotWithStatus(status models.ApplicationStatus) *models.ApplicationStatusSnapshot {
	return &models.ApplicationStatusSnapshot{
		HasApplication: true,
		Application: &models.LawyerApplication{
			Status:  status,
			Version: 1,
		},
	}
}

func requestPendingScreen(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	request := httptest.NewRequest(fiber.MethodGet, models.PathPending, nil)
	response, err := app.Test(request, 2000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return response
}

func TestGuardAuthorizesMatchingStatus(t *testing.T) {
	fetcher := &guardFetcher{snapshot: snapshotWithStatus(models.StatusPending)}
	app := newGuardApp(fetcher, pendingApplicant())

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	if decision := response.Header.Get("X-Guard-Decision"); decision != string(DecisionAuthorized) {
		t.Fatalf("expected authorized decision, got %q", decision)
	}
}

func TestGuardRedirectsOnStatusMismatch(t *testing.T) {
	fetcher := &guardFetcher{snapshot: snapshotWithStatus(models.StatusRejected)}
	app := newGuardApp(fetcher, pendingApplicant())

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303, got %d", response.StatusCode)
	}
	if location := response.Header.Get(fiber.HeaderLocation); location != models.PathRejected {
		t.Fatalf("expected Location %q, got %q", models.PathRejected, location)
	}
	if decision := response.Header.Get("X-Guard-Decision"); decision != string(DecisionRedirecting) {
		t.Fatalf("expected redirecting decision, got %q", decision)
	}
}

func TestGuardRedirectsAcknowledgedRejectionToTerminalScreen(t *testing.T) {
	snapshot := snapshotWithStatus(models.StatusRejected)
	snapshot.Application.Acknowledged = true
	app := newGuardApp(&guardFetcher{snapshot: snapshot}, pendingApplicant())

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303, got %d", response.StatusCode)
	}
	if location := response.Header.Get(fiber.HeaderLocation); location != models.PathAcknowledged {
		t.Fatalf("acknowledged rejection must target %q, got %q", models.PathAcknowledged, location)
	}
}

func TestGuardFailsOpenWhenStatusUnknown(t *testing.T) {
	// The fetch outlives the wait ceiling; the guard must let the request
	// through instead of blocking on the spinner.
	fetcher := &guardFetcher{
		snapshot: snapshotWithStatus(models.StatusRejected),
		delay:    300 * time.Millisecond,
	}
	app := newGuardApp(fetcher, pendingApplicant())

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", response.StatusCode)
	}
	if decision := response.Header.Get("X-Guard-Decision"); decision != string(DecisionAuthorized) {
		t.Fatalf("expected authorized decision on fail-open, got %q", decision)
	}
}

func TestGuardRedirectsUnauthenticatedToLogin(t *testing.T) {
	app := newGuardApp(&guardFetcher{}, nil)

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusSeeOther {
		t.Fatalf("expected 303, got %d", response.StatusCode)
	}
	if location := response.Header.Get(fiber.HeaderLocation); location != models.PathLogin {
		t.Fatalf("expected Location %q, got %q", models.PathLogin, location)
	}
}

func TestGuardRedirectsVerifiedLawyerToDashboard(t *testing.T) {
	identity := &models.Identity{
		UserID:        "lawyer-1",
		Role:          models.RoleLawyer,
		PendingLawyer: true, // stale marker; the verified role wins
	}
	app := newGuardApp(&guardFetcher{}, identity)

	response := requestPendingScreen(t, app)
	if location := response.Header.Get(fiber.HeaderLocation); location != models.PathDashboard {
		t.Fatalf("expected Location %q, got %q", models.PathDashboard, location)
	}
}

func TestGuardRedirectsWithoutPendingMarkerToHome(t *testing.T) {
	identity := &models.Identity{
		UserID: "user-1",
		Role:   models.RoleUser,
	}
	app := newGuardApp(&guardFetcher{}, identity)

	response := requestPendingScreen(t, app)
	if location := response.Header.Get(fiber.HeaderLocation); location != models.PathHome {
		t.Fatalf("expected Location %q, got %q", models.PathHome, location)
	}
}

func TestGuardAllowsPendingScreenWithoutApplicationRecord(t *testing.T) {
	// The marker says a submission exists but the record has not landed
	// yet; the pending screen is the only defensible place to be.
	fetcher := &guardFetcher{snapshot: &models.ApplicationStatusSnapshot{}}
	app := newGuardApp(fetcher, pendingApplicant())

	response := requestPendingScreen(t, app)
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on the pending screen, got %d", response.StatusCode)
	}
}
