package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/auth"
)

// RegisterAuthRoutes wires registration and login. Logout needs a session and is
// mounted on the protected group.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/register", rateLimiter, h.Register)
		group.Post("/login", rateLimiter, h.Login)
		return
	}
	group.Post("/register", h.Register)
	group.Post("/login", h.Login)
}
