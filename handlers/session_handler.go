package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/services"
)

// SessionHandler exposes the session registry to clients: register a session
// with the screen it is on, report navigation, and collect pending redirect
// directives produced by the poller.
type SessionHandler struct {
	Navigator *services.Navigator
}

func NewSessionHandler(navigator *services.Navigator) *SessionHandler {
	return &SessionHandler{Navigator: navigator}
}

// RegisterSession creates a session for the authenticated user.
func (h *SessionHandler) RegisterSession(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return unauthenticated(c)
	}

	type Request struct {
		CurrentPath string `json:"current_path"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request",
		})
	}

	session := h.Navigator.Register(identity.UserID, token, req.CurrentPath)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

// UpdateScreen records that the session navigated to a new path.
func (h *SessionHandler) UpdateScreen(c *fiber.Ctx) error {
	if identity, _ := identityFromContext(c); identity == nil {
		return unauthenticated(c)
	}

	type Request struct {
		CurrentPath string `json:"current_path"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid request",
		})
	}

	if !h.Navigator.UpdatePath(c.Params("id"), req.CurrentPath) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "session not found",
		})
	}
	return c.JSON(fiber.Map{"success": true})
}

// CollectRedirect pops the pending redirect directive for the session, if
// any. Collecting is one-shot: the same directive is never delivered twice.
func (h *SessionHandler) CollectRedirect(c *fiber.Ctx) error {
	if identity, _ := identityFromContext(c); identity == nil {
		return unauthenticated(c)
	}

	directive, ok := h.Navigator.CollectRedirect(c.Params("id"))
	if !ok {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    nil,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    directive,
	})
}

// EndSession drops the session and its subscriptions.
func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	if identity, _ := identityFromContext(c); identity == nil {
		return unauthenticated(c)
	}

	h.Navigator.Remove(c.Params("id"))
	return c.JSON(fiber.Map{"success": true})
}
