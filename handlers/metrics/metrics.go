package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/braingentech/site-api/services"
)

// MetricsHandler serves the Prometheus scrape endpoints
type MetricsHandler struct {
	svc *services.MetricsService
}

// NewMetricsHandler creates a metrics handler
func NewMetricsHandler(svc *services.MetricsService) *MetricsHandler {
	return &MetricsHandler{svc: svc}
}

// HandleMetrics exports application metrics in Prometheus text format
func (h *MetricsHandler) HandleMetrics(c *fiber.Ctx) error {
	body, err := h.svc.Render(c.UserContext())
	if err != nil {
		log.Errorf("metrics collection failed: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set(fiber.HeaderContentType, services.MetricsContentType)
	return c.SendString(body)
}

// HandleBusinessMetrics exports lead-quality metrics in Prometheus text
// format
func (h *MetricsHandler) HandleBusinessMetrics(c *fiber.Ctx) error {
	body, err := h.svc.RenderBusiness(c.UserContext())
	if err != nil {
		log.Errorf("business metrics collection failed: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set(fiber.HeaderContentType, services.MetricsContentType)
	return c.SendString(body)
}
