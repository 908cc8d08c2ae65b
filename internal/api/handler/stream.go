package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/overlay"
)

// LiveController drives the webcam session
type LiveController interface {
	Start(ctx context.Context) (live.Snapshot, error)
	Stop() live.Snapshot
	Snapshot() live.Snapshot
}

type StreamHandler struct {
	live    LiveController
	overlay OverlayEncoder
	logger  *slog.Logger
}

func NewStreamHandler(liveController LiveController, overlay OverlayEncoder, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		live:    liveController,
		overlay: overlay,
		logger:  logger,
	}
}

// Start POST /v1/stream/start - (re)start the webcam session
func (h *StreamHandler) Start(c *fiber.Ctx) error {
	snap, err := h.live.Start(c.Context())
	if err != nil {
		if errors.Is(err, live.ErrStartCanceled) {
			return fiber.NewError(fiber.StatusConflict, "stream start canceled by stop")
		}
		return err
	}
	return c.JSON(snap)
}

// Stop POST /v1/stream/stop - stop the webcam session; no-op when idle
func (h *StreamHandler) Stop(c *fiber.Ctx) error {
	return c.JSON(h.live.Stop())
}

// Get GET /v1/stream - live session state
func (h *StreamHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.live.Snapshot())
}

// Overlay GET /v1/stream/overlay - transparent PNG with the latest frame's boxes
func (h *StreamHandler) Overlay(c *fiber.Ctx) error {
	return sendOverlay(c, h.overlay)
}

func sendOverlay(c *fiber.Ctx, canvas OverlayEncoder) error {
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	if err := canvas.PNG(c.Response().BodyWriter()); err != nil {
		c.Response().ResetBody()
		if errors.Is(err, overlay.ErrNotSized) {
			return fiber.NewError(fiber.StatusNotFound, "overlay has not been drawn yet")
		}
		return err
	}
	return nil
}
