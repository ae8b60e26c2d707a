package middleware

import (
	"context"
	"log"
	"membership-service/internal/metrics"
	"membership-service/internal/models"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
)

const (
	IdentifierKey = "identifier"
	SessionKey    = "session"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// SessionGate resolves the session cookie, when present, into the request's
// identifier. Requests without a valid session continue anonymously.
func SessionGate(auth Authenticator, cookieName string) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		session, err := auth.Authenticate(ctx, token)
		cancel()
		if err != nil {
			log.Printf("Ignoring session cookie from %s: %v", c.IP(), err)
			return c.Next()
		}

		c.Locals(IdentifierKey, session.Identifier)
		c.Locals(SessionKey, session)
		return c.Next()
	}
}

// AuthRequired refuses requests that carry no identifier.
func AuthRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		if Identifier(c) == "" {
			log.Println("Unauthenticated request from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   models.ErrorCode(models.ErrNotAuthenticated),
				"message": "You must sign in",
			})
		}
		return c.Next()
	}
}

// Identifier returns the authenticated identifier, or "" for anonymous
// requests.
func Identifier(c fiber.Ctx) string {
	identifier, _ := c.Locals(IdentifierKey).(string)
	return identifier
}

// RequestTimer observes the duration of every request by matched route.
func RequestTimer() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		metrics.RequestDuration.WithLabelValues(c.Route().Path, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}
