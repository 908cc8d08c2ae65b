package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/live"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/media"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/ws"
)

// LiveStopper ends the webcam session before an image takes over the view
type LiveStopper interface {
	Stop() live.Snapshot
}

// ImageResult is the outcome of one static-image detection
type ImageResult struct {
	Faces     []domain.FaceBox `json:"faces"`
	Count     int              `json:"count"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Format    string           `json:"format"`
	Status    string           `json:"status"`
	LatencyMs int64            `json:"latency_ms"`
}

// FaceService runs the upload pipeline once per image
type FaceService struct {
	detector  live.Detector
	canvas    live.Canvas
	live      LiveStopper
	reporter  live.Reporter
	view      *View
	publisher live.Publisher
	audit     audit.Logger
	logger    *slog.Logger

	// one image at a time owns the image canvas
	mu sync.Mutex
}

func NewFaceService(
	detector live.Detector,
	canvas live.Canvas,
	liveStopper LiveStopper,
	reporter live.Reporter,
	view *View,
	logger *slog.Logger,
) *FaceService {
	return &FaceService{
		detector: detector,
		canvas:   canvas,
		live:     liveStopper,
		reporter: reporter,
		view:     view,
		audit:    &audit.NoOpLogger{},
		logger:   logger.With(slog.String("component", "face_service")),
	}
}

func (s *FaceService) WithPublisher(p live.Publisher) *FaceService {
	s.publisher = p
	return s
}

func (s *FaceService) WithAuditLogger(l audit.Logger) *FaceService {
	s.audit = l
	return s
}

// DetectImage stops any webcam session, decodes data, detects faces and
// paints them on the image canvas sized to the image's natural dimensions.
func (s *FaceService) DetectImage(ctx context.Context, data []byte) (*ImageResult, error) {
	if !s.detector.Ready() {
		s.reporter.Report(status.MsgModelsNotReady)
		return nil, domain.ErrModelNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	s.live.Stop()
	s.canvas.Clear()
	s.view.SetMode(domain.ViewImage)
	s.reporter.Report(status.MsgDetecting)

	src, format, err := media.LoadStaticImage(data)
	if err != nil {
		s.reporter.Report(status.MsgDecodeFailed)
		s.logAudit(ctx, false, err, nil)
		return nil, fmt.Errorf("detect image: %w", err)
	}

	s.canvas.Resize(src.Width, src.Height)

	boxes, err := s.detector.Detect(ctx, src)
	if err != nil {
		s.logger.Error("image detection failed", slog.String("error", err.Error()))
		s.reporter.Report(status.MsgDetectFailed)
		s.logAudit(ctx, false, err, nil)
		return nil, fmt.Errorf("detect image: %w", err)
	}

	if err := s.canvas.Render(boxes); err != nil {
		s.reporter.Report(status.MsgDetectFailed)
		return nil, domain.ErrInternal.WithError(fmt.Errorf("render overlay: %w", err))
	}

	msg := status.FacesDetected(len(boxes))
	s.reporter.Report(msg)

	result := &ImageResult{
		Faces:     boxes,
		Count:     len(boxes),
		Width:     src.Width,
		Height:    src.Height,
		Format:    format,
		Status:    msg,
		LatencyMs: time.Since(start).Milliseconds(),
	}

	if s.publisher != nil {
		s.publisher.Publish(ws.EventDetectionImage, result)
	}
	s.logAudit(ctx, true, nil, map[string]string{
		"faces":  strconv.Itoa(result.Count),
		"width":  strconv.Itoa(result.Width),
		"height": strconv.Itoa(result.Height),
	})

	return result, nil
}

func (s *FaceService) logAudit(ctx context.Context, success bool, err error, metadata map[string]string) {
	event := audit.Event{
		EventType: audit.EventImageDetected,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = s.audit.Log(ctx, event)
}

// Mode returns the visible pair
func (s *FaceService) Mode() domain.ViewMode {
	return s.view.Mode()
}
