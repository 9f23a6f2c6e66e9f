package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/payments"
)

// RegisterChainRoutes wires the signed contract calls.
func RegisterChainRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/chain/register", h.Register)
	r.Post("/chain/payments", h.Pay)
	r.Post("/chain/tips", h.Tip)
	r.Post("/chain/tiplink/toggle", h.ToggleTipLink)
	r.Get("/chain/payments", h.Payments)
}
