// middleware/admin_context.go
package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// AdminContextMiddleware extracts the acting administrator identity from the
// X-Admin-ID header and attaches it to the request context. The withdrawal
// service verifies the identity against configuration, so a forged header
// still fails there.
func AdminContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminID := c.Get("X-Admin-ID")
		if adminID == "" {
			log.Printf("[ADMIN_CTX] X-Admin-ID missing on admin route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Admin-ID header",
			})
		}
		c.Locals("admin_id", adminID)
		return c.Next()
	}
}
