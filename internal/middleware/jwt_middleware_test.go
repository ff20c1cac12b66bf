package middleware_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripcatalog/internal/middleware"
	"tripcatalog/internal/models"
	"tripcatalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]*models.Identity

func (t tokenTable) Resolve(token string) (*models.Identity, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return nil, fmt.Errorf("unknown token: %w", models.ErrUnauthenticated)
}

func setup() *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)
	gate := services.NewGate(tokenTable{
		"admin":  {UserID: "u-admin", Username: "root", IsAdmin: true},
		"member": {UserID: "u-member", Username: "bob"},
	})

	app := fiber.New()
	app.Get("/me", middleware.AuthRequired(gate, log), func(c *fiber.Ctx) error {
		return c.SendString(middleware.UserID(c))
	})
	app.Get("/admin", middleware.AdminRequired(gate, log), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestAuthRequired(t *testing.T) {
	app := setup()

	status, body := get(t, app, "/me", "Bearer member")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u-member", body)

	for _, header := range []string{"", "member", "Basic member", "Bearer ", "Bearer nope"} {
		status, _ = get(t, app, "/me", header)
		assert.Equal(t, http.StatusUnauthorized, status, "header %q", header)
	}
}

func TestAdminRequired(t *testing.T) {
	app := setup()

	status, body := get(t, app, "/admin", "Bearer admin")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body)

	status, _ = get(t, app, "/admin", "Bearer member")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = get(t, app, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
