package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes public profile endpoints.
type Handler struct {
	directory *Directory
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(directory *Directory) *Handler {
	return &Handler{directory: directory}
}

// Profile returns the public tip page data for :username.
func (h *Handler) Profile(c *fiber.Ctx) error {
	profile, err := h.directory.Lookup(c.UserContext(), c.Params("username"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(profile)
}

// List returns every registered profile.
func (h *Handler) List(c *fiber.Ctx) error {
	profiles, err := h.directory.Profiles(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"users": profiles})
}
