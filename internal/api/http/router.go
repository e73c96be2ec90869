package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ticket-sla/internal/api/http/handlers"
	"github.com/spec-kit/ticket-sla/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	SLA     *handlers.SLAHandler
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	app.Get("/tickets/:id/sla", cfg.SLA.GetTicketSLA)
	app.Post("/tickets/sla", cfg.SLA.BatchTicketSLA)

	slaGroup := app.Group("/sla")
	slaGroup.Post("/evaluate", cfg.SLA.EvaluateSnapshot)
	slaGroup.Post("/deadline", cfg.SLA.Deadline)

	app.Get("/companies/:companyID/sla-configs", cfg.SLA.CompanyConfigs)
}
