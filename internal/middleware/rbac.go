package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scolarite-api/internal/utils"
)

type roleSet map[string]struct{}

func newRoleSet(roles ...string) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := roleOf(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// permits checks the role stored in locals by JWTProtected or WriteGuard.
func (s roleSet) permits(c *fiber.Ctx) bool {
	_, ok := s[roleOf(c.Locals("user_role"))]
	return ok
}

// RequireRole rejects requests whose authenticated role is not listed.
// It must run after JWTProtected.
func RequireRole(roles ...string) fiber.Handler {
	allowed := newRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		if !allowed.permits(c) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

func roleOf(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string, []interface{}:
		return normalizeRole(v)
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
	}
}
