package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func guardedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Use(middleware.WriteGuard(secret))
	handler := func(c *fiber.Ctx) error {
		if id, ok := c.Locals("user_id").(uint); ok {
			c.Set("X-User-ID", strconv.FormatUint(uint64(id), 10))
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
	app.Get("/", handler)
	app.Post("/", handler)
	return app
}

func perform(t *testing.T, app *fiber.App, method, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestWriteGuardDisabledWithoutSecret(t *testing.T) {
	app := guardedApp("")

	resp := perform(t, app, http.MethodPost, "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWriteGuardAllowsReads(t *testing.T) {
	app := guardedApp(testSecret)

	resp := perform(t, app, http.MethodGet, "")
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWriteGuardRequiresToken(t *testing.T) {
	app := guardedApp(testSecret)

	resp := perform(t, app, http.MethodPost, "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = perform(t, app, http.MethodPost, "not-a-jwt")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	forged := signToken(t, "other-secret", jwt.MapClaims{"sub": "1", "role": "teacher"})
	resp = perform(t, app, http.MethodPost, forged)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWriteGuardChecksRole(t *testing.T) {
	app := guardedApp(testSecret)

	student := signToken(t, testSecret, jwt.MapClaims{"sub": "4", "role": "student"})
	resp := perform(t, app, http.MethodPost, student)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	teacher := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "12",
		"role": "Teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	resp = perform(t, app, http.MethodPost, teacher)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	require.Equal(t, "12", resp.Header.Get("X-User-ID"))
}

func TestWriteGuardRejectsExpiredToken(t *testing.T) {
	app := guardedApp(testSecret)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "1",
		"role": "admin",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})
	resp := perform(t, app, http.MethodPut, expired)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedReadsRoleList(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_role").(string))
	})

	token := signToken(t, testSecret, jwt.MapClaims{"user_id": 3, "roles": []string{"ADMIN"}})
	resp := perform(t, app, http.MethodGet, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
