package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-sla/pkg/util/errorutil"
)

// Pinger is a dependency that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// optional dependencies report whether they were configured at all.
type optional interface {
	Enabled() bool
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	redis       Pinger
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready fails only when Postgres is unreachable. Redis is reported but a
// Redis outage only turns the config cache off.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	deps := map[string]any{
		"redis": probe(ctx, h.redis),
	}
	pgErr := h.postgres.Ping(ctx)
	if pgErr != nil {
		deps["postgres"] = pgErr.Error()
		return apperrors.NewUnavailable("one or more dependencies unavailable", deps, pgErr)
	}
	deps["postgres"] = "ok"

	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": deps,
	})
}

func probe(ctx context.Context, dep Pinger) string {
	if o, ok := dep.(optional); ok && !o.Enabled() {
		return "disabled"
	}
	if err := dep.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
