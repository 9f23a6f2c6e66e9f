package wallet

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	facade *Facade
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(facade *Facade) *Handler {
	return &Handler{facade: facade}
}

type sendRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
}

type tipRequest struct {
	Amount string `json:"amount"`
}

// Dashboard returns balance, history, address and tip link.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.facade.Snapshot(c.UserContext()))
}

// Refresh re-reads the balance.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	if err := h.facade.Refresh(c.UserContext()); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": h.facade.Balance(c.UserContext())})
}

// Send pays destination from the wallet.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Destination) == "" || strings.TrimSpace(req.Amount) == "" {
		return fiber.NewError(http.StatusBadRequest, "destination and amount are required")
	}
	tx, err := h.facade.SendPayment(c.UserContext(), strings.TrimSpace(req.Destination), req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": tx,
		"balance":     h.facade.Balance(c.UserContext()),
	})
}

// Receive returns the address and tip link to share.
func (h *Handler) Receive(c *fiber.Ctx) error {
	info, err := h.facade.Receive()
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(info)
}

// TipLink returns the tip link of the current identity.
func (h *Handler) TipLink(c *fiber.Ctx) error {
	link := h.facade.TipLink()
	if link == "" {
		return mapError(ErrNotInitialized)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"tipLink": link})
}

// Tip sends a tip to :username from the current wallet.
func (h *Handler) Tip(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Params("username"))
	if username == "" {
		return fiber.NewError(http.StatusBadRequest, "username is required")
	}
	var req tipRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.facade.Tip(c.UserContext(), username, req.Amount)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": tx,
		"message":     "Successfully tipped " + tx.Amount + " XLM!",
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotInitialized):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(http.StatusRequestTimeout, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
