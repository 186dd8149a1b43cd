package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg config.Config) *fiber.App {
	app := fiber.New()
	app.Use(NewAuthMiddleware(cfg).AuthMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := config.Config{SecretKey: "secret", CookieName: "session"}
	app := newApp(cfg)

	valid, err := utils.GenerateToken(cfg.SecretKey, "42", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken(cfg.SecretKey, "42", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.GenerateToken("other-secret", "42", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie string
		header string
		status int
	}{
		{name: "cookie", cookie: valid, status: fiber.StatusOK},
		{name: "bearer", header: "Bearer " + valid, status: fiber.StatusOK},
		{name: "lowercase bearer", header: "bearer " + valid, status: fiber.StatusOK},
		{name: "missing", status: fiber.StatusUnauthorized},
		{name: "expired cookie", cookie: expired, status: fiber.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, status: fiber.StatusUnauthorized},
		{name: "basic auth", header: "Basic abc", status: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.cookie != "" {
				req.Header.Set("Cookie", cfg.CookieName+"="+tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuthMiddleware_ClearsBadCookie(t *testing.T) {
	cfg := config.Config{SecretKey: "secret", CookieName: "session"}
	app := newApp(cfg)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", "session=garbage")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "session=;")
}
