package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sentrahub/sentra/internal/models"
)

// defaultAlertLimit bounds GET /v1/alerts when no limit is given
const defaultAlertLimit = 50

// ListAlerts returns the newest alerts first. ?limit= caps the page;
// invalid or missing values fall back to the default.
func (h *Handler) ListAlerts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultAlertLimit)
	if limit <= 0 {
		limit = defaultAlertLimit
	}

	entries := h.alerts.List(limit)
	return c.JSON(models.AlertListResponse{
		Alerts: entries,
		Count:  len(entries),
	})
}

// Stats returns derived fleet statistics
func (h *Handler) Stats(c *fiber.Ctx) error {
	return c.JSON(models.StatsResponse{
		Stats: models.SystemStats{
			KnownFaces:      h.identities.Count(),
			ActiveNodes:     h.registry.OnlineCount(),
			TotalDetections: h.registry.TotalDetections(),
		},
	})
}
