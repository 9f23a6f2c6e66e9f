package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	localRequestID  = "request_id"
	localUsername   = "username"
)

// RequestID ensures each request carries an identifier, echoing a client supplied one.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(localRequestID, reqID)
		return c.Next()
	}
}

// RequestIDFrom returns the identifier assigned by RequestID.
func RequestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// UsernameFrom returns the username authenticated by Session.
func UsernameFrom(c *fiber.Ctx) string {
	name, _ := c.Locals(localUsername).(string)
	return name
}
