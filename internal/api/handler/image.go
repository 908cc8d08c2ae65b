package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/service"
)

const (
	defaultMaxImageSize = 10 * 1024 * 1024 // 10MB
)

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// ImageDetector runs the static-image pipeline
type ImageDetector interface {
	DetectImage(ctx context.Context, data []byte) (*service.ImageResult, error)
}

// OverlayEncoder writes a canvas as PNG
type OverlayEncoder interface {
	PNG(w io.Writer) error
}

type ImageHandler struct {
	detector     ImageDetector
	overlay      OverlayEncoder
	maxImageSize int64
	logger       *slog.Logger
}

func NewImageHandler(detector ImageDetector, overlay OverlayEncoder, maxImageSize int, logger *slog.Logger) *ImageHandler {
	size := int64(maxImageSize)
	if size <= 0 {
		size = defaultMaxImageSize
	}
	return &ImageHandler{
		detector:     detector,
		overlay:      overlay,
		maxImageSize: size,
		logger:       logger,
	}
}

// Detect POST /v1/images - detect faces in an uploaded image
func (h *ImageHandler) Detect(c *fiber.Ctx) error {
	// 1. Extract and validate image
	imageBytes, err := h.extractAndValidateImage(c)
	if err != nil {
		return fmt.Errorf("detect image: %w", err)
	}

	// 2. Run the pipeline (stops the webcam first)
	result, err := h.detector.DetectImage(c.Context(), imageBytes)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Overlay GET /v1/images/overlay - transparent PNG with the image's boxes
func (h *ImageHandler) Overlay(c *fiber.Ctx) error {
	return sendOverlay(c, h.overlay)
}

// extractAndValidateImage extracts and validates the image from the form
func (h *ImageHandler) extractAndValidateImage(c *fiber.Ctx) ([]byte, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	if file.Size == 0 {
		return nil, domain.ErrDecode.WithError(errors.New("empty file"))
	}
	if file.Size > h.maxImageSize {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("image exceeds %d bytes", h.maxImageSize))
	}

	contentType := strings.ToLower(file.Header.Get("Content-Type"))
	if !validImageTypes[contentType] {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("unsupported content type %q", contentType))
	}

	f, err := file.Open()
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}

	return imageBytes, nil
}
