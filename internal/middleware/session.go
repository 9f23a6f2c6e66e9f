package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/auth"
	"github.com/stellarpass/stellarpass/internal/identity"
)

// Authorizer matches token claims against the live session.
type Authorizer interface {
	Authorize(username string, version uint64) (identity.Identity, error)
}

// Session validates the bearer token and checks that it belongs to the current session
// epoch, so tokens issued before a logout stop working.
func Session(tokens *auth.Tokens, sessions Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		id, err := sessions.Authorize(claims.Subject, claims.Version)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "session ended")
		}
		c.Locals(localUsername, id.Username)
		return c.Next()
	}
}
