package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/officehours/internal/observability"
	"github.com/campusdesk/officehours/internal/persistence"
	"github.com/campusdesk/officehours/internal/realtime"
	"github.com/campusdesk/officehours/internal/service"
	"github.com/campusdesk/officehours/internal/worker"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	statuses    *service.StatusService
	hub         *realtime.Hub
	redis       *persistence.Redis
	relay       *worker.NotificationWorker
	metrics     *observability.Metrics
}

// HealthDependencies bundles what the probes inspect. Redis and Relay may be nil.
type HealthDependencies struct {
	ServiceName string
	Version     string
	Statuses    *service.StatusService
	Hub         *realtime.Hub
	Redis       *persistence.Redis
	Relay       *worker.NotificationWorker
	Metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: deps.ServiceName,
		version:     deps.Version,
		statuses:    deps.Statuses,
		hub:         deps.Hub,
		redis:       deps.Redis,
		relay:       deps.Relay,
		metrics:     deps.Metrics,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies. The relay is
// optional, so an unreachable Redis is reported but does not fail readiness.
// A closed hub means the process is draining.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{
		"store": fiber.Map{"records": h.statuses.Count(ctx)},
	}
	if h.hub != nil {
		depStatus["live"] = h.hub.Stats()
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			depStatus["redis"] = err.Error()
		} else {
			depStatus["redis"] = "ok"
		}
	}

	if h.hub != nil && h.hub.Closed() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "SHUTTING_DOWN",
				"message": "live channel closed",
				"details": depStatus,
			},
		})
	}

	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": depStatus,
	})
}

// Metrics dumps request counters, live channel and relay statistics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	resp := fiber.Map{"http": h.metrics.Snapshot()}
	if h.hub != nil {
		resp["live"] = h.hub.Stats()
	}
	if h.relay != nil {
		resp["relay"] = h.relay.Stats()
	}
	return c.JSON(resp)
}
