package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// GuardDecision is the outcome of one guard evaluation.
type GuardDecision string

const (
	DecisionAuthorized  GuardDecision = "authorized"
	DecisionRedirecting GuardDecision = "redirecting"
)

// StatusGuard gates the status-specific screen routes: the request proceeds
// only when the authoritative application status matches the status the
// route requires; otherwise a single navigation replace is issued toward the
// screen matching the actual status.
//
// The guard fails open: when the status cannot be determined within the wait
// ceiling it authorizes the request rather than blocking the user. A briefly
// stale view is acceptable; an onboarding flow stuck on a spinner is not.
type StatusGuard struct {
	Store   *services.StatusStore
	Metrics *shared.SyncMetrics
	Config  shared.SyncConfig
}

// NewStatusGuard creates a guard over the given store.
func NewStatusGuard(store *services.StatusStore, metrics *shared.SyncMetrics, cfg shared.SyncConfig) *StatusGuard {
	return &StatusGuard{Store: store, Metrics: metrics, Config: cfg}
}

// RequireStatus returns the middleware guarding a screen that requires the
// given application status. Evaluation order:
//
//  1. no identity            -> replace to login
//  2. verified lawyer role   -> replace to the lawyer dashboard
//  3. no pending marker      -> replace to home
//  4. snapshot unknown       -> fail open, authorized
//  5. no application record  -> authorized iff required status is pending
//  6. status mismatch        -> replace to the actual status's screen
func (g *StatusGuard) RequireStatus(required models.ApplicationStatus) fiber.Handler {
	requiredScreen, ok := models.ScreenForStatus(required)
	if !ok {
		logrus.WithFields(logrus.Fields{
			"component": "StatusGuard",
			"status":    required,
		}).Error("Guard configured with unknown status, route will always redirect to pending")
		requiredScreen, _ = models.ScreenForStatus(models.StatusPending)
	}

	return func(c *fiber.Ctx) error {
		identity, token := identityFromContext(c)

		if identity == nil {
			return g.redirect(c, models.PathLogin, "unauthenticated")
		}
		if identity.IsVerifiedLawyer() {
			return g.redirect(c, models.PathDashboard, "verified_lawyer")
		}
		if !identity.PendingLawyer {
			return g.redirect(c, models.PathHome, "no_pending_application")
		}

		ctx, cancel := context.WithTimeout(c.Context(), g.Config.GuardWaitCeiling)
		defer cancel()

		snapshot := g.Store.GetStatus(ctx, identity.UserID, token)
		if snapshot == nil {
			// Unknown status: fail open rather than trap the user behind
			// a loading state.
			g.Metrics.RecordFailOpen()
			logrus.WithFields(logrus.Fields{
				"component": "StatusGuard",
				"user_id":   identity.UserID,
				"required":  required,
			}).Warn("Status unknown within wait ceiling, failing open")
			return g.authorize(c)
		}

		target := models.ScreenForSnapshot(snapshot)
		if target.Path == requiredScreen.Path {
			return g.authorize(c)
		}
		return g.redirect(c, target.Path, "status_mismatch")
	}
}

func (g *StatusGuard) authorize(c *fiber.Ctx) error {
	c.Set("X-Guard-Decision", string(DecisionAuthorized))
	return c.Next()
}

// redirect issues the one-time navigation replace: 303 with a Location
// header plus a JSON directive body for clients that follow manually.
func (g *StatusGuard) redirect(c *fiber.Ctx, targetPath, reason string) error {
	g.Metrics.RecordRedirect()
	c.Set("X-Guard-Decision", string(DecisionRedirecting))
	c.Set(fiber.HeaderLocation, targetPath)
	return c.Status(fiber.StatusSeeOther).JSON(fiber.Map{
		"success": false,
		"redirect": fiber.Map{
			"path":   targetPath,
			"reason": reason,
		},
	})
}
