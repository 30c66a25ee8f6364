// middleware/auth_test.go
package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newUserCtxApp() *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware())
	app.Get("/tournaments", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"roles":   c.Locals("user_roles"),
		})
	})
	return app
}

func TestUserContextMiddlewareRejectsMissingUserID(t *testing.T) {
	app := newUserCtxApp()

	req := httptest.NewRequest("GET", "/tournaments", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestUserContextMiddlewarePassesUserContext(t *testing.T) {
	app := newUserCtxApp()

	req := httptest.NewRequest("GET", "/tournaments", nil)
	req.Header.Set("X-User-ID", "user-123")
	req.Header.Set("X-User-Roles", "player, admin")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
}
