package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
)

// StatusSource exposes the status line
type StatusSource interface {
	Snapshot() status.Snapshot
}

// ModelInspector exposes the model state and its failure reason
type ModelInspector interface {
	State() domain.ModelState
	Err() error
}

// LiveInspector exposes the live loop state
type LiveInspector interface {
	Snapshot() live.Snapshot
}

// ModeSource exposes the visible pair
type ModeSource interface {
	Mode() domain.ViewMode
}

type StatusHandler struct {
	status StatusSource
	models ModelInspector
	live   LiveInspector
	view   ModeSource
}

func NewStatusHandler(statusSource StatusSource, models ModelInspector, liveInspector LiveInspector, view ModeSource) *StatusHandler {
	return &StatusHandler{
		status: statusSource,
		models: models,
		live:   liveInspector,
		view:   view,
	}
}

type StatusResponse struct {
	Message    string            `json:"message"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
	ModelState domain.ModelState `json:"model_state"`
	ModelError string            `json:"model_error,omitempty"`
	ViewMode   domain.ViewMode   `json:"view_mode"`
	Live       live.Snapshot     `json:"live"`
}

// Build assembles the current status; also used as the first WebSocket event
func (h *StatusHandler) Build() StatusResponse {
	snap := h.status.Snapshot()
	resp := StatusResponse{
		Message:    snap.Message,
		ModelState: h.models.State(),
		ViewMode:   h.view.Mode(),
		Live:       h.live.Snapshot(),
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}
	if err := h.models.Err(); err != nil {
		resp.ModelError = err.Error()
	}
	return resp
}

// Get GET /v1/status - current status line, model and live state
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.Build())
}
