// card-tournament-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"card-tournament-system/services"

	"github.com/gofiber/fiber/v2"
)

type contextKey string

const (
	UserIDContextKey    contextKey = "userID"
	UserRolesContextKey contextKey = "userRoles"
)

// SSEAuthMiddleware validates `token` from the query string via
// AuthServiceClient. EventSource cannot set headers, so spectator
// streams authenticate through the query instead of the Gateway.
//
// Usage:
//
//	app.Get("/matches/:id/stream", middleware.SSEAuthMiddleware(authClient), spectatorService.StreamMatchSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))

		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (prefix: %s...): %v",
				accessToken[:min(10, len(accessToken))], err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// Attach to Fiber context (like UserContextMiddleware, but from query)
		c.Locals(string(UserIDContextKey), resp.UserID)
		c.Locals(string(UserRolesContextKey), resp.Roles)

		return c.Next()
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
