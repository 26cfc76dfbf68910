package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		role   interface{}
		status int
	}{
		{name: "admin", role: "admin", status: fiber.StatusOK},
		{name: "mixed case teacher", role: " Teacher ", status: fiber.StatusOK},
		{name: "role list from claims", role: []interface{}{"", "ADMIN"}, status: fiber.StatusOK},
		{name: "student", role: "student", status: fiber.StatusForbidden},
		{name: "anonymous", role: nil, status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(func(c *fiber.Ctx) error {
				if tc.role != nil {
					c.Locals("user_role", tc.role)
				}
				return c.Next()
			})
			app.Use(RequireRole(RoleAdmin, RoleTeacher))
			app.Get("/api/activities", func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/activities", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRoleSetIgnoresBlankRoles(t *testing.T) {
	set := newRoleSet("", "  ", "Admin")
	require.Len(t, set, 1)
	require.Contains(t, set, RoleAdmin)
}
