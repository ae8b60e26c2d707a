package handlers

import (
	"context"
	"log"
	"membership-service/internal/middleware"
	"membership-service/internal/models"
	"membership-service/internal/service"
	"time"

	"github.com/gofiber/fiber/v3"
)

type RegistrationHandler struct {
	registrationService *service.RegistrationService
}

func NewRegistrationHandler(registrationService *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
	}
}

func (h *RegistrationHandler) RegisterRoutes(app *fiber.App) {
	app.Post("/register", h.Register, middleware.AuthRequired())
	app.Get("/api/events", h.ListEvents, middleware.AuthRequired())
}

func (h *RegistrationHandler) Register(c fiber.Ctx) error {
	eventName := c.FormValue("event")
	if eventName == "" {
		eventName = c.Query("event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	identifier := middleware.Identifier(c)
	outcome, err := h.registrationService.Register(ctx, eventName, identifier)
	if err != nil {
		log.Printf("Registration of %s to %q refused: %v", identifier, eventName, err)
		return respondError(c, err)
	}

	status := fiber.StatusCreated
	message := "You are registered for " + eventName
	if outcome == models.OutcomeAlreadyRegistered {
		status = fiber.StatusOK
		message = "You were already registered for " + eventName
	}
	return c.Status(status).JSON(fiber.Map{
		"outcome": outcome.String(),
		"message": message,
		"data": fiber.Map{
			"event":      eventName,
			"identifier": identifier,
		},
	})
}

func (h *RegistrationHandler) ListEvents(c fiber.Ctx) error {
	entries, err := listEvents(h.registrationService, middleware.Identifier(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": fiber.Map{
			"events": entries,
		},
	})
}

func listEvents(registrations *service.RegistrationService, identifier string) ([]eventEntry, error) {
	names, err := registrations.Events()
	if err != nil {
		return nil, err
	}
	entries := make([]eventEntry, 0, len(names))
	for _, name := range names {
		registered, err := registrations.IsRegistered(name, identifier)
		if err != nil {
			return nil, err
		}
		entries = append(entries, eventEntry{Name: name, Registered: registered})
	}
	return entries, nil
}
