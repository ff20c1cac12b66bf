package middleware

import (
	"errors"

	"tripcatalog/internal/models"
	"tripcatalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Locals keys set for authenticated requests.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
	LocalIsAdmin  = "is_admin"
)

// AuthRequired is a Fiber middleware that rejects requests without a valid bearer token.
func AuthRequired(gate *services.Gate, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := gate.Authenticate(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		// Store identity in Fiber context for subsequent handlers
		c.Locals(LocalUserID, identity.UserID)
		c.Locals(LocalUsername, identity.Username)
		c.Locals(LocalIsAdmin, identity.IsAdmin)
		return c.Next()
	}
}

// AdminRequired rejects requests whose bearer token does not belong to an
// administrator, before any request body is read.
func AdminRequired(gate *services.Gate, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := gate.RequireAdmin(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("admin check failed")
			if errors.Is(err, models.ErrForbidden) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"message": "Administrator access required",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(LocalUserID, identity.UserID)
		c.Locals(LocalUsername, identity.Username)
		c.Locals(LocalIsAdmin, identity.IsAdmin)
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by AuthRequired.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
