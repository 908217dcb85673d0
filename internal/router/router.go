package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/sentrahub/sentra/internal/handlers"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/middleware"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, h *handlers.Handler, logger *logging.Logger, apiKeys []string, authEnabled bool) {
	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, "/health"))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// Gateway socket (nodes authenticate by registering; dashboards are
	// read-only observers)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.WebSocket))

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, apiKeys, authEnabled)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Node Management Routes
	v1.Post("/nodes", h.RegisterNode)
	v1.Get("/nodes", h.ListNodes)
	v1.Get("/nodes/:id", h.GetNode)
	v1.Put("/nodes/:id", h.UpdateNode)
	v1.Delete("/nodes/:id", h.DeleteNode)
	v1.Post("/nodes/:id/heartbeat", h.Heartbeat)
	v1.Post("/nodes/:id/restart", h.RestartNode)
	v1.Post("/nodes/:id/toggle_status", h.ToggleNodeStatus)

	// Stream Routes
	v1.Get("/nodes/:id/stream", h.NodeStream)
	v1.Get("/nodes/:id/proxy_stream", h.ProxyStream)

	// Alert and Stats Routes
	v1.Get("/alerts", h.ListAlerts)
	v1.Get("/stats", h.Stats)

	// Face Management Routes
	v1.Post("/faces", h.RegisterFace)
	v1.Get("/faces", h.ListFaces)
	v1.Delete("/faces/:name", h.DeleteFace)
	v1.Post("/faces/recognize", h.RecognizeFaces)
	v1.Post("/faces/detect", h.DetectFaces)

	// 404 handler
	app.Use(h.NotFound)
}

// New creates a new Fiber app with configuration
func New(h *handlers.Handler, logger *logging.Logger, apiKeys []string, authEnabled bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Sentra Hub",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, h, logger, apiKeys, authEnabled)

	return app
}
