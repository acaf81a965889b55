package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RequireAPIKey gates admin routes on the X-Admin-Key header.
// An empty configured key hard-fails every request (safer than accidentally open).
func RequireAPIKey(key string) fiber.Handler {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusInternalServerError, "admin API key not configured")
		}
	}

	return func(c *fiber.Ctx) error {
		got := strings.TrimSpace(c.Get("X-Admin-Key"))
		if got == "" || got != key {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
