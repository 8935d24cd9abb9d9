package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
)

// ScreenHandler serves the payloads of the status screens: the static copy
// from the screen table plus the snapshot the client should render. The
// routes for the four status screens sit behind the guard; the acknowledged
// screen is terminal and unguarded.
type ScreenHandler struct {
	Store *services.StatusStore
}

func NewScreenHandler(store *services.StatusStore) *ScreenHandler {
	return &ScreenHandler{Store: store}
}

// GetStatusScreen serves a guarded status screen. The snapshot comes from
// the cache the guard just refreshed; a nil snapshot (fail-open pass) still
// renders with default copy instead of erroring.
func (h *ScreenHandler) GetStatusScreen(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)

	var snapshot *models.ApplicationStatusSnapshot
	if identity != nil {
		snapshot = h.Store.GetStatus(c.Context(), identity.UserID, token)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"screen":   models.ScreenCopy(snapshot),
			"snapshot": snapshot,
		},
	})
}

// GetAcknowledgedScreen serves the terminal rejected-and-acknowledged screen.
// It has no required status and never redirects.
func (h *ScreenHandler) GetAcknowledgedScreen(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"screen": models.AcknowledgedScreen,
		},
	})
}

// GetMyStatus exposes the raw snapshot for the authenticated user.
func (h *ScreenHandler) GetMyStatus(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "authentication required",
		})
	}

	snapshot := h.Store.GetStatus(c.Context(), identity.UserID, token)
	if snapshot == nil {
		// Unknown, not "no application": the client should retry.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "status temporarily unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    snapshot,
	})
}
