package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/legalassist/status-gateway/models"
	"github.com/legalassist/status-gateway/services"
	"github.com/legalassist/status-gateway/shared"
	"github.com/sirupsen/logrus"
)

// ApplicationHandler proxies the state-changing platform calls. Every
// successful mutation invalidates the status cache so the next read sees the
// new authoritative state; failed mutations leave the cache untouched so the
// client never sees a false success.
type ApplicationHandler struct {
	Client *services.PlatformClient
	Store  *services.StatusStore
}

func NewApplicationHandler(client *services.PlatformClient, store *services.StatusStore) *ApplicationHandler {
	return &ApplicationHandler{Client: client, Store: store}
}

// SubmitApplication submits a new or resubmitted lawyer application.
func (h *ApplicationHandler) SubmitApplication(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return unauthenticated(c)
	}

	form := &models.SubmissionForm{
		FullName:        c.FormValue("full_name"),
		RollNumber:      c.FormValue("roll_number"),
		RollSigningDate: c.FormValue("roll_signing_date"),
		IDCardPath:      c.FormValue("id_card_path"),
		SelfiePath:      c.FormValue("selfie_path"),
	}
	if form.FullName == "" || form.RollNumber == "" || form.IDCardPath == "" || form.SelfiePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "full_name, roll_number, id_card_path and selfie_path are required",
		})
	}

	result, err := h.Client.SubmitApplication(c.Context(), token, form)
	if err != nil {
		return mutationError(c, "SubmitApplication", err)
	}
	if result.Success {
		h.Store.Invalidate(c.Context(), identity.UserID)
	}

	return c.JSON(fiber.Map{
		"success": result.Success,
		"data":    result,
	})
}

// AcknowledgeRejection acknowledges a rejected outcome. On success the cache
// is invalidated and the client is pointed at the terminal acknowledged
// screen.
func (h *ApplicationHandler) AcknowledgeRejection(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return unauthenticated(c)
	}

	result, err := h.Client.AcknowledgeRejection(c.Context(), token)
	if err != nil {
		return mutationError(c, "AcknowledgeRejection", err)
	}
	if result.Success {
		h.Store.Invalidate(c.Context(), identity.UserID)
	}

	return c.JSON(fiber.Map{
		"success": result.Success,
		"data":    result,
		"redirect": fiber.Map{
			"path": models.PathAcknowledged,
		},
	})
}

// ClearPendingFlag clears the pending-lawyer marker after an outcome was
// acknowledged. The identity is re-resolved on the next request, so the
// profile refresh is implicit.
func (h *ApplicationHandler) ClearPendingFlag(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return unauthenticated(c)
	}

	result, err := h.Client.ClearPendingFlag(c.Context(), token)
	if err != nil {
		return mutationError(c, "ClearPendingFlag", err)
	}
	if result.Success {
		h.Store.Invalidate(c.Context(), identity.UserID)
	}

	return c.JSON(fiber.Map{
		"success": result.Success,
		"data":    result,
	})
}

// UploadDocument accepts an identity document (ibp-id or selfie) and relays
// it to the platform. Content type is sniffed; only JPEG and PNG pass.
func (h *ApplicationHandler) UploadDocument(c *fiber.Ctx) error {
	identity, token := identityFromContext(c)
	if identity == nil {
		return unauthenticated(c)
	}

	kind := c.Params("kind")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "file field is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to open uploaded file",
		})
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to read uploaded file",
		})
	}

	result, err := h.Client.UploadDocument(c.Context(), token, kind, fileHeader.Filename, content)
	if err != nil {
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Category == shared.ErrorCategoryValidation {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"success": false,
				"error":   serviceErr.Message,
			})
		}
		return mutationError(c, "UploadDocument", err)
	}

	return c.JSON(fiber.Map{
		"success": result.Success,
		"data":    result,
	})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   "authentication required",
	})
}

// mutationError surfaces a failed platform mutation to the caller. This is
// the one place where upstream errors reach the user: they asked for the
// change and are actively waiting on the outcome.
func mutationError(c *fiber.Ctx, operation string, err error) error {
	logrus.WithFields(logrus.Fields{
		"component": "ApplicationHandler",
		"operation": operation,
		"cause":     err,
	}).Error("Platform mutation failed")

	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"success": false,
		"error":   "the request could not be completed, please try again",
	})
}
