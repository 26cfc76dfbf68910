package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scolarite-api/internal/utils"
)

// Roles allowed to change grades, absences and students.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// WriteGuard protects mutating requests with a bearer token and a role check;
// reads stay public. With an empty secret authentication is disabled.
func WriteGuard(secret string, roles ...string) fiber.Handler {
	if secret == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if len(roles) == 0 {
		roles = []string{RoleAdmin, RoleTeacher}
	}

	allowed := newRoleSet(roles...)

	return WritesOnly(func(c *fiber.Ctx) error {
		if message, ok := authenticate(c, secret); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, message)
		}
		if !allowed.permits(c) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	})
}
