package middleware

import (
	"errors"
	"strings"

	"fable/pkg/token"

	"github.com/gofiber/fiber/v2"
)

// Protected verifies the bearer access token and attaches the caller's
// identity to the request. Expiry gets its own machine-readable error so
// clients know to try the refresh flow instead of forcing a re-login.
func Protected(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication token required"})
		}

		claims, err := tokens.VerifyAccessToken(auth[7:])
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "ACCESS_TOKEN_EXPIRED"})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("name", claims.Name)

		return c.Next()
	}
}
