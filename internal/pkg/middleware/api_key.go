package middleware

import (
	"crypto/hmac"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAPIKey authenticates operator requests against the configured static
// key. The compare is constant time; an empty configured key locks the
// admin surface entirely instead of opening it.
func AdminAPIKey(configuredKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := extractAPIKeyFromHeader(c)
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if configuredKey == "" || !hmac.Equal([]byte(key), []byte(configuredKey)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
