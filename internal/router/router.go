package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unilodge/unilodge-api/internal/config"
	"github.com/unilodge/unilodge-api/internal/handler"
	"github.com/unilodge/unilodge-api/internal/middleware"
	"github.com/unilodge/unilodge-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ConversationHandler *handler.ConversationHandler
	MessageHandler      *handler.MessageHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
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

	if deps.ConversationHandler != nil {
		conversations := api.Group("/conversations", jwtMiddleware)
		deps.ConversationHandler.Register(conversations)

		if deps.MessageHandler != nil {
			typingLimiter := middleware.RateLimit("typing", cfg.TypingRateLimit, cfg.TypingRateWindow)
			deps.MessageHandler.Register(conversations, typingLimiter)
		}
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
