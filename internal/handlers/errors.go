package handlers

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"preview-service/internal/services"
	"preview-service/internal/viewer"
)

const InvalidUuidError = "invalid UUID"

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrNoMetadata):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrUnsupportedFormat),
		errors.Is(err, services.ErrInvalidModel),
		errors.Is(err, services.ErrInvalidMetadata),
		errors.Is(err, viewer.ErrNoPreviewURL):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNoPreview),
		errors.Is(err, viewer.ErrSuperseded),
		errors.Is(err, viewer.ErrClosed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": true, "message": message,
	})
}

// serviceError logs err with what and writes the mapped error response.
func serviceError(c *fiber.Ctx, what string, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("%s: %v", what, err)
	} else {
		log.Warnf("%s: %v", what, err)
	}
	return errorJSON(c, status, err.Error())
}
