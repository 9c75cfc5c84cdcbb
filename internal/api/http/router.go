package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/officehours/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Faculty  *handlers.FacultyHandler
	Live     *handlers.LiveHandler
	LivePath string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	faculty := app.Group("/api/faculty")
	faculty.Get("/", cfg.Faculty.List)
	faculty.Post("/", cfg.Faculty.Create)
	faculty.Get("/:id", cfg.Faculty.Get)
	faculty.Delete("/:id", cfg.Faculty.Delete)
	faculty.Patch("/:id/status", cfg.Faculty.UpdateStatus)
	faculty.Get("/:id/qr-data", cfg.Faculty.QRData)

	livePath := cfg.LivePath
	if livePath == "" {
		livePath = "/ws"
	}
	app.Get(livePath, cfg.Live.RequireUpgrade, cfg.Live.Stream())
}
