package handlers

import (
	"context"
	"log"
	"membership-service/internal/metrics"
	"membership-service/internal/models"
	"membership-service/internal/service"
	"time"

	"github.com/gofiber/fiber/v3"
)

type IdentityVerifier interface {
	Verify(ctx context.Context, assertion string) (string, error)
}

type GoogleIdentity interface {
	AuthURL(state string) string
	Identify(ctx context.Context, code string) (string, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	sessionService *service.SessionService
	profileService *service.ProfileService
	verifier       IdentityVerifier
	google         GoogleIdentity
	cookie         CookieConfig
}

// NewAuthHandler wires sign-in. google may be nil to disable Google sign-in.
func NewAuthHandler(sessionService *service.SessionService, profileService *service.ProfileService, verifier IdentityVerifier, google GoogleIdentity, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		profileService: profileService,
		verifier:       verifier,
		google:         google,
		cookie:         cookie,
	}
}

func (h *AuthHandler) RegisterRoutes(app *fiber.App) {
	persona := app.Group("/persona")
	persona.Post("/signin", h.SignIn)
	persona.Get("/signout", h.SignOut)

	if h.google != nil {
		google := app.Group("/auth/google")
		google.Get("/login", h.GoogleLogin)
		google.Get("/callback", h.GoogleCallback)
	}
}

func (h *AuthHandler) SignIn(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	email, err := h.verifier.Verify(ctx, c.FormValue("assertion"))
	if err != nil {
		metrics.SignInAttempts.WithLabelValues("failure", string(models.SignInAssertion)).Inc()
		log.Printf("Assertion sign-in from %s failed: %v", c.IP(), err)
		return respondError(c, err)
	}

	if err := h.startSession(ctx, c, email, models.SignInAssertion); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "okay",
		"email":  email,
	})
}

func (h *AuthHandler) SignOut(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.sessionService.EndSession(ctx, c.Cookies(h.cookie.Name)); err != nil {
		log.Printf("Error ending session: %v", err)
	}
	c.ClearCookie(h.cookie.Name)
	metrics.SignOuts.Inc()

	return c.Status(fiber.StatusOK).SendString("You are now disconnected")
}

func (h *AuthHandler) GoogleLogin(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	state, err := h.sessionService.NewState(ctx)
	if err != nil {
		log.Printf("Failed to store oauth state: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "Could not start sign-in",
		})
	}
	return c.Redirect().To(h.google.AuthURL(state))
}

func (h *AuthHandler) GoogleCallback(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	valid, err := h.sessionService.CheckState(ctx, c.Query("state"))
	if err != nil {
		log.Printf("Failed to check oauth state: %v", err)
		return respondError(c, err)
	}
	if !valid {
		metrics.SignInAttempts.WithLabelValues("failure", string(models.SignInGoogle)).Inc()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   models.ErrorCode(models.ErrIdentityRejected),
			"message": "Invalid state",
		})
	}

	email, err := h.google.Identify(ctx, c.Query("code"))
	if err != nil {
		metrics.SignInAttempts.WithLabelValues("failure", string(models.SignInGoogle)).Inc()
		log.Printf("Google sign-in from %s failed: %v", c.IP(), err)
		return respondError(c, err)
	}

	if err := h.startSession(ctx, c, email, models.SignInGoogle); err != nil {
		return respondError(c, err)
	}
	return c.Redirect().To("/")
}

// startSession makes sure the member has a stored profile, then opens a
// session for the verified identifier and sets the cookie.
func (h *AuthHandler) startSession(ctx context.Context, c fiber.Ctx, identifier string, method models.SignInMethod) error {
	if _, err := h.profileService.EnsureProfile(ctx, identifier); err != nil {
		metrics.SignInAttempts.WithLabelValues("failure", string(method)).Inc()
		return err
	}

	token, _, err := h.sessionService.NewSession(ctx, identifier, method, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		metrics.SignInAttempts.WithLabelValues("failure", string(method)).Inc()
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.sessionService.TTL()),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	metrics.SignInAttempts.WithLabelValues("success", string(method)).Inc()
	log.Printf("Signed in %s via %s", identifier, method)
	return nil
}
