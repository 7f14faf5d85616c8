package fiber

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/pkg/errutil"
)

// Response bodies
const (
	msgInvalidInput  = "Username and password are required"
	msgMissingFields = "Missing required fields"
	msgUsernameTaken = "Username already exists"
	msgEmailTaken    = "Email already exists"
	msgBadLogin      = "Invalid username or password"
	msgUnauth        = "Not authenticated"
	msgUserNotFound  = "User not found"
	msgInternal      = "Internal server error"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type trackResponse struct {
	Success bool              `json:"success"`
	Event   core.EventReceipt `json:"event"`
}

func (a *Adapter) signUp(c fiber.Ctx) error {
	var input core.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, core.ErrInvalidInput, "signup")
	}

	if _, err := a.auth.SignUp(c.Context(), input); err != nil {
		return a.writeError(c, err, "signup")
	}

	return c.Status(http.StatusOK).JSON(successResponse{Success: true, Message: "User registered successfully"})
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, core.ErrInvalidInput, "login")
	}

	result, err := a.auth.Login(c.Context(), input, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return a.writeError(c, err, "login")
	}

	a.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.Status(http.StatusOK).JSON(successResponse{Success: true, Message: "Login successful"})
}

func (a *Adapter) logout(c fiber.Ctx) error {
	a.auth.Logout(c.Context(), extractToken(c, a.opts.Cookie.Name))
	a.clearSessionCookie(c)
	return c.Status(http.StatusOK).JSON(successResponse{Success: true})
}

func (a *Adapter) getUser(c fiber.Ctx) error {
	identity, err := a.auth.Profile(c.Context(), extractToken(c, a.opts.Cookie.Name))
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) || errors.Is(err, core.ErrUserNotFound) {
			a.clearSessionCookie(c)
		}
		return a.writeError(c, err, "get user")
	}
	return c.Status(http.StatusOK).JSON(identity)
}

func (a *Adapter) trackEvent(c fiber.Ctx) error {
	actor, ok := IdentityFrom(c)
	if !ok {
		return a.writeError(c, core.ErrUnauthenticated, "track")
	}

	var input core.EventInput
	if err := c.Bind().Body(&input); err != nil {
		return a.writeError(c, core.ErrMissingFields, "track")
	}

	event, err := a.events.Record(c.Context(), actor, input)
	if err != nil {
		return a.writeError(c, err, "track")
	}

	return c.Status(http.StatusCreated).JSON(trackResponse{Success: true, Event: event.Receipt()})
}

// extractToken extracts the session token from the request.
// Checks Authorization header (Bearer token) first, then falls back to cookie.
func extractToken(c fiber.Ctx, cookieName string) string {
	if token, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); found && token != "" {
		return strings.TrimSpace(token)
	}
	return c.Cookies(cookieName)
}

func (a *Adapter) setSessionCookie(c fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     a.opts.Cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   a.opts.Cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *Adapter) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.opts.Cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   a.opts.Cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// writeError maps domain errors onto status codes and fixed messages.
// Store failures are logged and never leak to the client.
func (a *Adapter) writeError(c fiber.Ctx, err error, operation string) error {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(a.log, operation+" failed", err)
	}
	return c.Status(status).JSON(core.ErrorResponse{Error: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidInput
	case errors.Is(err, core.ErrUsernameTaken):
		return http.StatusBadRequest, msgUsernameTaken
	case errors.Is(err, core.ErrEmailTaken):
		return http.StatusBadRequest, msgEmailTaken
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusBadRequest, msgBadLogin
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, msgUnauth
	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound, msgUserNotFound
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
