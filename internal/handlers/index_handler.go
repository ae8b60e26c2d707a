package handlers

import (
	"bytes"
	"membership-service/internal/middleware"
	"membership-service/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IndexHandler struct {
	registrationService *service.RegistrationService
	googleEnabled       bool
}

func NewIndexHandler(registrationService *service.RegistrationService, googleEnabled bool) *IndexHandler {
	return &IndexHandler{
		registrationService: registrationService,
		googleEnabled:       googleEnabled,
	}
}

func (h *IndexHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/", h.Index)
	app.Get("/health", h.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *IndexHandler) Index(c fiber.Ctx) error {
	page := indexPage{
		Identifier:    middleware.Identifier(c),
		GoogleEnabled: h.googleEnabled,
	}
	if page.Identifier != "" {
		events, err := listEvents(h.registrationService, page.Identifier)
		if err != nil {
			return respondError(c, err)
		}
		page.Events = events
	}
	return sendHTML(c, fiber.StatusOK, func(buf *bytes.Buffer) error {
		return renderIndex(buf, page)
	})
}

func (h *IndexHandler) HealthCheck(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("Membership Service is healthy")
}
