package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/tala/core"
)

const identityLocal = "identity"

// RequireAuth rejects requests without an active session with 401 and stores
// the caller's identity for downstream handlers.
func (a *Adapter) RequireAuth(next fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		identity, err := a.auth.Authenticate(c.Context(), extractToken(c, a.opts.Cookie.Name))
		if err != nil {
			return a.writeError(c, err, "authenticate")
		}

		c.Locals(identityLocal, identity)
		return next(c)
	}
}

// IdentityFrom returns the identity stored by RequireAuth
func IdentityFrom(c fiber.Ctx) (*core.PublicIdentity, bool) {
	identity, ok := c.Locals(identityLocal).(*core.PublicIdentity)
	return identity, ok && identity != nil
}
