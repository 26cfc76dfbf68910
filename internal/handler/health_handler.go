package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/scolarite-api/internal/config"
	"github.com/noah-isme/scolarite-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks one backing dependency such as the database or Redis.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse is the payload of GET /api/v1/health. Dependencies maps
// each probe name to "up" or the error it returned.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	AuthEnabled  bool              `json:"authEnabled"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck runs every probe on each call. A failing probe turns the
// status into "degraded" and the response into a 503.
func HealthCheck(cfg config.Config, probes ...HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:       "ok",
			Service:      cfg.AppName,
			Environment:  cfg.AppEnv,
			AuthEnabled:  cfg.AuthEnabled(),
			Dependencies: make(map[string]string, len(probes)),
		}

		for _, probe := range probes {
			ctx, cancel := context.WithTimeout(requestContext(c), healthProbeTimeout)
			err := probe.Check(ctx)
			cancel()

			if err != nil {
				payload.Status = "degraded"
				payload.Dependencies[probe.Name] = err.Error()
				continue
			}
			payload.Dependencies[probe.Name] = "up"
		}
		payload.Timestamp = time.Now().UTC()

		if payload.Status != "ok" {
			return utils.SendSuccessWithStatus(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
