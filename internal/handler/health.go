package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/response"
)

// Configured is implemented by the external API clients.
type Configured interface {
	IsConfigured() bool
}

type HealthHandler struct {
	services map[string]Configured
}

func NewHealthHandler(services map[string]Configured) *HealthHandler {
	return &HealthHandler{services: services}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := make(map[string]bool, len(h.services))
	for name, svc := range h.services {
		services[name] = svc != nil && svc.IsConfigured()
	}

	return response.OK(c, model.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Services:  services,
	})
}
