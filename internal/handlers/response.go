package handlers

import (
	"bytes"
	"errors"
	"log"
	"membership-service/internal/models"

	"github.com/gofiber/fiber/v3"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrNotAuthenticated), errors.Is(err, models.ErrIdentityRejected):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidEventName), errors.Is(err, models.ErrInvalidIdentifier):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrUnknownEvent):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrPath):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrIdentityUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the stable error code for err. Server-side failures
// are logged and their details kept out of the response.
func respondError(c fiber.Ctx, err error) error {
	status := errorStatus(err)
	message := err.Error()
	if status >= fiber.StatusInternalServerError {
		log.Printf("Request %s %s failed: %v", c.Method(), c.OriginalURL(), err)
		message = "The request could not be completed"
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   models.ErrorCode(err),
		"message": message,
	})
}

func sendHTML(c fiber.Ctx, status int, render func(buf *bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Printf("Failed to render page: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to render page")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
