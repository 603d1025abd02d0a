package middleware

import (
	"strings"

	"go-approvals/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminMiddleware checks if the user holds the admin role
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok || claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if !strings.EqualFold(claims.Role, "admin") {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: Admin role required",
			})
		}

		return c.Next()
	}
}
