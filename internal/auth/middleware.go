package auth

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/workshop-checkin/internal/domain"
)

const (
	bearerPrefix  = "Bearer "
	staffLocalKey = "staff"
)

// RequireStaff verifies the bearer token and attaches the staff identity to
// both the fiber locals and the request's user context.
func RequireStaff(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if header == "" {
			return fmt.Errorf("%w: missing authorization header", domain.ErrUnauthorized)
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			return fmt.Errorf("%w: invalid authorization format", domain.ErrUnauthorized)
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			return err
		}

		c.Locals(staffLocalKey, identity)
		c.SetUserContext(domain.WithStaffIdentity(c.UserContext(), identity))
		return c.Next()
	}
}

// RequireAdmin must run after RequireStaff.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := StaffFromCtx(c)
		if !ok {
			return fmt.Errorf("%w: no staff identity", domain.ErrUnauthorized)
		}
		if !identity.IsAdmin() {
			return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
		}
		return c.Next()
	}
}

func StaffFromCtx(c *fiber.Ctx) (domain.StaffIdentity, bool) {
	identity, ok := c.Locals(staffLocalKey).(domain.StaffIdentity)
	return identity, ok
}
