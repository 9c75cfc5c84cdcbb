package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusdesk/officehours/internal/api/http/handlers"
	"github.com/campusdesk/officehours/internal/observability"
	"github.com/campusdesk/officehours/internal/persistence"
	"github.com/campusdesk/officehours/internal/realtime"
	"github.com/campusdesk/officehours/internal/service"
	"github.com/campusdesk/officehours/internal/worker"
)

// ServerConfig bundles what NewServer wires together.
type ServerConfig struct {
	AppName        string
	Version        string
	RequestTimeout time.Duration
	LivePath       string
	PingInterval   time.Duration

	Statuses *service.StatusService
	Hub      *realtime.Hub
	Redis    *persistence.Redis
	Relay    *worker.NotificationWorker
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewServer builds the fiber application with middleware and routes.
func NewServer(cfg ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	RegisterMiddlewares(app, cfg.Logger, cfg.Metrics, cfg.RequestTimeout)

	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthDependencies{
			ServiceName: cfg.AppName,
			Version:     cfg.Version,
			Statuses:    cfg.Statuses,
			Hub:         cfg.Hub,
			Redis:       cfg.Redis,
			Relay:       cfg.Relay,
			Metrics:     cfg.Metrics,
		}),
		Faculty:  handlers.NewFacultyHandler(cfg.Statuses),
		Live:     handlers.NewLiveHandler(cfg.Hub, cfg.PingInterval, cfg.Logger),
		LivePath: cfg.LivePath,
	})
	return app
}
