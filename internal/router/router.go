package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scolarite-api/internal/config"
	"github.com/noah-isme/scolarite-api/internal/handler"
	"github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler       *handler.GradeHandler
	AbsenceHandler     *handler.AbsenceHandler
	StudentHandler     *handler.StudentHandler
	DashboardHandler   *handler.DashboardHandler
	ActivityHandler    *handler.ActivityHandler
	EventStreamHandler *handler.EventStreamHandler
	HealthProbes       []handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	// Reads are public; writes are throttled and, with a secret, need an
	// admin or teacher token.
	writeStack := func(identifier string) []fiber.Handler {
		return []fiber.Handler{
			middleware.WriteGuard(cfg.JWTSecret, middleware.RoleAdmin, middleware.RoleTeacher),
			middleware.WritesOnly(middleware.RateLimit(identifier, cfg.RateLimitMax, cfg.RateLimitWindow)),
		}
	}

	if deps.GradeHandler != nil {
		deps.GradeHandler.Register(app.Group("/notes/api/notes", writeStack("notes")...))
	}

	if deps.AbsenceHandler != nil {
		deps.AbsenceHandler.Register(app.Group("/absence/api/absences", writeStack("absences")...))
	}

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(app.Group("/api/etudiants", writeStack("etudiants")...))
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(app.Group("/api/dashboard"))
	}

	// The audit trail names actors, so it is admin-only once auth is on.
	if deps.ActivityHandler != nil {
		var guards []fiber.Handler
		if cfg.AuthEnabled() {
			guards = append(guards, middleware.JWTProtected(cfg.JWTSecret), middleware.RequireRole(middleware.RoleAdmin))
		}
		deps.ActivityHandler.Register(app.Group("/api/activities", guards...))
	}

	if deps.EventStreamHandler != nil {
		deps.EventStreamHandler.Register(app.Group("/ws/events"))
	}
}
