package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"membership-service/internal/middleware"
	"membership-service/internal/service"
	"time"

	"github.com/gofiber/fiber/v3"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/profile", h.GetProfilePage, middleware.AuthRequired())
	app.Post("/profile", h.UpdateProfilePage, middleware.AuthRequired())

	app.Get("/api/profile", h.GetMe, middleware.AuthRequired())
	app.Patch("/api/profile", h.UpdateMe, middleware.AuthRequired())
}

func (h *ProfileHandler) GetProfilePage(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := h.profileService.GetProfile(ctx, middleware.Identifier(c))
	if err != nil {
		return respondError(c, err)
	}
	return sendHTML(c, fiber.StatusOK, func(buf *bytes.Buffer) error {
		return renderProfile(buf, profile, "")
	})
}

// UpdateProfilePage takes every submitted form field as a dotted path.
func (h *ProfileHandler) UpdateProfilePage(c fiber.Ctx) error {
	values := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		values[string(key)] = string(value)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	identifier := middleware.Identifier(c)
	profile, changed, err := h.profileService.UpdateProfile(ctx, identifier, values)
	if err != nil {
		log.Printf("Failed to update profile for %s: %v", identifier, err)
		return respondError(c, err)
	}
	log.Printf("Profile of %s saved, %d fields changed", identifier, len(changed))

	return sendHTML(c, fiber.StatusOK, func(buf *bytes.Buffer) error {
		return renderProfile(buf, profile, "Profile updated")
	})
}

func (h *ProfileHandler) GetMe(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	profile, err := h.profileService.GetProfile(ctx, middleware.Identifier(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"identifier": profile.Identifier,
			"profile":    profile.Data,
			"stored":     !profile.IsNew,
		},
	})
}

func (h *ProfileHandler) UpdateMe(c fiber.Ctx) error {
	var values map[string]string
	if err := json.Unmarshal(c.Body(), &values); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "Body must be an object of dotted paths to string values",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	identifier := middleware.Identifier(c)
	profile, changed, err := h.profileService.UpdateProfile(ctx, identifier, values)
	if err != nil {
		log.Printf("Failed to update profile for %s: %v", identifier, err)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Profile updated",
		"data": fiber.Map{
			"identifier":    profile.Identifier,
			"profile":       profile.Data,
			"changedFields": changed,
		},
	})
}
