// Package handlers implements the hub's HTTP surface and the websocket
// gateway sensor nodes and dashboards connect through.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sentrahub/sentra/internal/alerts"
	"github.com/sentrahub/sentra/internal/bus"
	"github.com/sentrahub/sentra/internal/config"
	"github.com/sentrahub/sentra/internal/ingest"
	"github.com/sentrahub/sentra/internal/logging"
	"github.com/sentrahub/sentra/internal/models"
	"github.com/sentrahub/sentra/internal/recognition"
	"github.com/sentrahub/sentra/internal/registry"
	"github.com/sentrahub/sentra/internal/stream"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger     *logging.Logger
	registry   *registry.Registry
	alerts     *alerts.Log
	identities *recognition.IdentityStore
	engine     recognition.Engine
	proxy      *stream.Proxy
	pipeline   *ingest.Pipeline
	events     *bus.Bus
	recogCfg   config.RecognitionConfig
}

// New creates a new handler instance
func New(logger *logging.Logger, reg *registry.Registry, alertLog *alerts.Log,
	identities *recognition.IdentityStore, engine recognition.Engine,
	proxy *stream.Proxy, pipeline *ingest.Pipeline, events *bus.Bus,
	recogCfg config.RecognitionConfig,
) *Handler {
	return &Handler{
		logger:     logger,
		registry:   reg,
		alerts:     alertLog,
		identities: identities,
		engine:     engine,
		proxy:      proxy,
		pipeline:   pipeline,
		events:     events,
		recogCfg:   recogCfg,
	}
}

// errorJSON writes the standard error envelope
func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Path:    c.Path(),
		},
	})
}
