package analytics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/braingentech/site-api/services"
)

// AnalyticsHandler serves the dashboard aggregation endpoints
type AnalyticsHandler struct {
	svc *services.AnalyticsService
}

// NewAnalyticsHandler creates an analytics handler
func NewAnalyticsHandler(svc *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// HandleData returns all dashboard sections for the requested period.
// The payload is consumed directly by the dashboard charts, so it ships
// without the API envelope.
func (h *AnalyticsHandler) HandleData(c *fiber.Ctx) error {
	period := c.Query("period", "7days")

	data, err := h.svc.Data(c.UserContext(), period)
	if err != nil {
		log.Errorf("analytics aggregation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to aggregate analytics data",
		})
	}

	return c.JSON(data)
}

// HandleRealtime returns the live snapshot for the dashboard header
func (h *AnalyticsHandler) HandleRealtime(c *fiber.Ctx) error {
	metrics, err := h.svc.Realtime(c.UserContext())
	if err != nil {
		log.Errorf("realtime metrics failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to collect realtime metrics",
		})
	}

	return c.JSON(metrics)
}
