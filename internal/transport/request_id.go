package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/workshop-checkin/internal/observability"
)

const (
	requestIDLocalKey  = "requestid"
	maxRequestIDLength = 128
)

// RequestID reuses an inbound X-Request-ID or assigns a new one, echoes it
// on the response and stores it in the request's user context.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.TrimSpace(c.Get(observability.RequestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Locals(requestIDLocalKey, requestID)
		c.Set(observability.RequestIDHeader, requestID)
		c.SetUserContext(observability.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}
