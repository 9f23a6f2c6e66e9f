package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/notification"
)

// Handler exposes register/login/logout and the session snapshot.
type Handler struct {
	manager *Manager
	tokens  *Tokens
	notices *notification.Recorder
}

// NewHandler builds the auth handler. notices may be nil.
func NewHandler(manager *Manager, tokens *Tokens, notices *notification.Recorder) *Handler {
	return &Handler{manager: manager, tokens: tokens, notices: notices}
}

type registerRequest struct {
	Username string `json:"username"`
}

type authResponse struct {
	Identity    identity.Identity `json:"identity"`
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// Register enrolls a new identity and returns a session token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	id, err := h.manager.Register(c.UserContext(), req.Username)
	if err != nil {
		return mapError(err)
	}
	return h.respond(c, http.StatusCreated, id)
}

// Login signs the stored identity back in.
func (h *Handler) Login(c *fiber.Ctx) error {
	id, err := h.manager.Login(c.UserContext())
	if err != nil {
		return mapError(err)
	}
	return h.respond(c, http.StatusOK, id)
}

// Logout ends the session; outstanding tokens stop validating.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.manager.Logout(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

type sessionResponse struct {
	Session
	Notices []notification.Message `json:"notices,omitempty"`
}

// Session returns the session snapshot and recent notices.
func (h *Handler) Session(c *fiber.Ctx) error {
	resp := sessionResponse{Session: h.manager.Session()}
	if h.notices != nil {
		resp.Notices = h.notices.Messages()
	}
	return c.Status(http.StatusOK).JSON(resp)
}

func (h *Handler) respond(c *fiber.Ctx, status int, id identity.Identity) error {
	token, exp, err := h.tokens.Issue(id.Username, h.manager.Epoch())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(status).JSON(authResponse{Identity: id, AccessToken: token, ExpiresAt: exp})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidUsername):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrAuthenticationInProgress):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrRegistrationAborted):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNoStoredSession):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAuthenticationFailed):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
