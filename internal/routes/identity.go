package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/identity"
)

// RegisterIdentityRoutes exposes the public tip page profile and the roster.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/tip/:username", h.Profile)
	r.Get("/users", h.List)
}
