package payments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/wallet"
)

// Handler exposes the contract operations under /chain.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type payRequest struct {
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Memo     string `json:"memo"`
	Category string `json:"category"`
}

type tipRequest struct {
	Username string `json:"username"`
	Amount   string `json:"amount"`
	Message  string `json:"message"`
}

// Register records the current identity in the contract.
func (h *Handler) Register(c *fiber.Ctx) error {
	receipt, err := h.service.Register(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(receipt)
}

// Pay submits send_payment.
func (h *Handler) Pay(c *fiber.Ctx) error {
	var req payRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.service.Pay(c.UserContext(), PayInput(req))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(receipt)
}

// Tip submits send_tip.
func (h *Handler) Tip(c *fiber.Ctx) error {
	var req tipRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.service.Tip(c.UserContext(), TipInput(req))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(receipt)
}

// ToggleTipLink submits toggle_tip_link for the current identity.
func (h *Handler) ToggleTipLink(c *fiber.Ctx) error {
	receipt, err := h.service.ToggleTipLink(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusAccepted).JSON(receipt)
}

// User returns a registered user.
func (h *Handler) User(c *fiber.Ctx) error {
	user, ok, err := h.service.User(c.UserContext(), c.Params("username"))
	if err != nil {
		return mapError(err)
	}
	if !ok {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	return c.Status(http.StatusOK).JSON(user)
}

// TipLink returns tip link statistics.
func (h *Handler) TipLink(c *fiber.Ctx) error {
	info, ok, err := h.service.TipLink(c.UserContext(), c.Params("username"))
	if err != nil {
		return mapError(err)
	}
	if !ok {
		return fiber.NewError(http.StatusNotFound, "tip link not found")
	}
	return c.Status(http.StatusOK).JSON(info)
}

// Payments lists payments of :address, newest first.
func (h *Handler) Payments(c *fiber.Ctx) error {
	var limit uint32
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = uint32(n)
	}
	list, err := h.service.Payments(c.UserContext(), c.Params("address"), limit)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"payments": list})
}

// Stats returns the contract counters.
func (h *Handler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(stats)
}

func mapError(err error) error {
	var remote *contract.RemoteError
	var appErr *contract.ContractError
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, wallet.ErrNotInitialized):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, contract.ErrInvalidRequest):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.As(err, &appErr):
		return fiber.NewError(http.StatusUnprocessableEntity, appErr.Code)
	case errors.As(err, &remote):
		return fiber.NewError(http.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
