package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/percorso-labs/percorso-api/internal/config"
	"github.com/percorso-labs/percorso-api/internal/handler"
	"github.com/percorso-labs/percorso-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExerciseHandler   *handler.ExerciseHandler
	AssignmentHandler *handler.AssignmentHandler
	DraftHandler      *handler.DraftHandler
	SessionHandler    *handler.SessionHandler
	ProgressHandler   *handler.ProgressHandler
	GeneratorHandler  *handler.GeneratorHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
	ConsultantOnly    fiber.Handler
	GeneratorLimiter  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	consultantOnly := deps.ConsultantOnly
	if consultantOnly == nil {
		consultantOnly = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ExerciseHandler != nil {
		exercises := app.Group("/api/v1/exercises", jwtMiddleware, consultantOnly)
		deps.ExerciseHandler.Register(exercises)

		if deps.GeneratorHandler != nil {
			if deps.GeneratorLimiter != nil {
				exercises.Use("/generate", deps.GeneratorLimiter)
			}
			deps.GeneratorHandler.Register(exercises)
		}
	}

	if deps.AssignmentHandler != nil {
		assignments := app.Group("/api/v1/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignments)

		if deps.DraftHandler != nil {
			deps.DraftHandler.Register(assignments)
		}
		if deps.SessionHandler != nil {
			deps.SessionHandler.Register(assignments)
		}
	}

	if deps.ProgressHandler != nil {
		progress := app.Group("/api/v1/progress", jwtMiddleware)
		deps.ProgressHandler.Register(progress)
	}

	if deps.ActivityHandler != nil {
		activity := app.Group("/api/v1/activity", jwtMiddleware, consultantOnly)
		deps.ActivityHandler.Register(activity)
	}
}
