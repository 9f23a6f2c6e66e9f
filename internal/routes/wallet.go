package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/wallet"
)

// RegisterWalletRoutes wires the dashboard, send, receive and tip endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Dashboard)
	r.Post("/wallet/refresh", h.Refresh)
	r.Post("/wallet/send", h.Send)
	r.Get("/wallet/receive", h.Receive)
	r.Get("/tiplink", h.TipLink)
	r.Post("/tip/:username", h.Tip)
}
