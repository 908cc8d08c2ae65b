package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// ModelStater reports the detector model state
type ModelStater interface {
	State() domain.ModelState
}

type HealthHandler struct {
	models ModelStater
}

func NewHealthHandler(models ModelStater) *HealthHandler {
	return &HealthHandler{models: models}
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	ModelState domain.ModelState `json:"model_state,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: "0.1.0",
	})
}

// Ready answers 503 until the detection models are loaded
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	state := h.models.State()
	if state != domain.ModelReady {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status:     "not_ready",
			ModelState: state,
		})
	}
	return c.JSON(HealthResponse{
		Status:     "ready",
		ModelState: state,
	})
}
