package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/travel-session/internal/api/http/handlers"
	"github.com/spec-kit/travel-session/internal/auth"
	"github.com/spec-kit/travel-session/internal/observability"
)

// SessionRouteConfig bundles dependencies of the session daemon routes.
type SessionRouteConfig struct {
	Health  *handlers.HealthHandler
	Session *handlers.SessionHandler
	Metrics *observability.Metrics
}

// AuthRouteConfig bundles dependencies of the auth API routes.
type AuthRouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterSessionRoutes wires the session daemon routes.
func RegisterSessionRoutes(app *fiber.App, cfg SessionRouteConfig) {
	registerHealth(app, cfg.Health)

	if cfg.Metrics != nil {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.JSON(cfg.Metrics.Snapshot())
		})
	}

	sessionGroup := app.Group("/session")
	sessionGroup.Get("", cfg.Session.Get)
	sessionGroup.Post("/login", cfg.Session.Login)
	sessionGroup.Post("/register", cfg.Session.Register)
	sessionGroup.Post("/refresh", cfg.Session.Refresh)
	sessionGroup.Post("/logout", cfg.Session.Logout)
	sessionGroup.Get("/profile", cfg.Session.Profile)

	app.Get("/navigation", cfg.Session.Navigation)
	app.Put("/navigation", cfg.Session.Visit)
}

// RegisterAuthRoutes wires the auth API routes.
func RegisterAuthRoutes(app *fiber.App, cfg AuthRouteConfig) {
	registerHealth(app, cfg.Health)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/refresh", cfg.Users.Refresh)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	protected.Get("/me", cfg.Users.Me)
}

func registerHealth(app *fiber.App, health *handlers.HealthHandler) {
	if health == nil {
		return
	}
	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
}
