package handlers

import (
	"context"
	"time"

	"riskgate/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Checker pings one backing service.
type Checker func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewHealthHandler reports on each named check. Services that are not
// configured are simply not registered.
func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	healthy := true
	services := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			healthy = false
			services[name] = "unavailable"
			continue
		}
		services[name] = "connected"
	}

	body := fiber.Map{"status": "ok", "services": services}
	if !healthy {
		body["status"] = "degraded"
		return utils.ServiceUnavailable(c, body)
	}
	return utils.Success(c, body)
}
