package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/satria-go-api/internal/config"
	"github.com/noah-isme/satria-go-api/internal/handler"
	"github.com/noah-isme/satria-go-api/internal/middleware"
	"github.com/noah-isme/satria-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ActivityHandler *handler.ActivityHandler
	ApprovalHandler *handler.ApprovalHandler
	WorkloadHandler *handler.WorkloadHandler
	EventHandler    *handler.EventHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Student activities, write-rate limited per user
	if deps.ActivityHandler != nil {
		activities := api.Group("/activities", jwtMiddleware, middleware.RateLimit("activities", 60, time.Minute))
		deps.ActivityHandler.Register(activities)
	}

	// Faculty review workflow
	if deps.ApprovalHandler != nil {
		approvals := api.Group("/approvals", jwtMiddleware)
		deps.ApprovalHandler.Register(approvals)
	}

	// Faculty workload aggregation, reviewers and admins only
	if deps.WorkloadHandler != nil {
		faculty := api.Group("/faculty", jwtMiddleware, middleware.RequireRole("faculty", "admin"))
		deps.WorkloadHandler.Register(faculty)
	}

	// Workflow audit feed + live review stream
	if deps.EventHandler != nil {
		events := api.Group("/events", jwtMiddleware, middleware.RequireRole("faculty", "admin"))
		deps.EventHandler.Register(events)
		deps.EventHandler.RegisterStream(app)
	}
}
