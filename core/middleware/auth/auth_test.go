package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/objects", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		path   string
		header map[string]string
		want   int
	}{
		{"Disabled", Config{}, "/objects", nil, fiber.StatusOK},
		{"Missing", Config{ApiKey: "secret"}, "/objects", nil, fiber.StatusUnauthorized},
		{"Wrong", Config{ApiKey: "secret"}, "/objects", map[string]string{HeaderName: "nope"}, fiber.StatusUnauthorized},
		{"Header", Config{ApiKey: "secret"}, "/objects", map[string]string{HeaderName: "secret"}, fiber.StatusOK},
		{"Bearer", Config{ApiKey: "secret"}, "/objects", map[string]string{"Authorization": "Bearer secret"}, fiber.StatusOK},
		{"Skipped", Config{ApiKey: "secret", Skip: []string{"/metrics"}}, "/metrics", nil, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}

			resp, err := newApp(tt.cfg).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
