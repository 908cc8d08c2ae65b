// Package detection gates the external detector behind the model state and
// maps its output into source-native face boxes.
package detection

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/metrics"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/provider"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
)

// DefaultMinConfidence is the score below which faces are discarded
const DefaultMinConfidence = 0.5

// StatusReporter receives status line updates
type StatusReporter interface {
	Report(message string)
}

// Service owns the process-wide ModelState
type Service struct {
	detector      provider.FaceDetector
	reporter      StatusReporter
	auditLogger   audit.Logger
	logger        *slog.Logger
	minConfidence float64

	loadOnce sync.Once
	loaded   chan struct{}

	mu    sync.RWMutex
	state domain.ModelState
	err   error
}

// Option configures the Service
type Option func(*Service)

// WithMinConfidence overrides DefaultMinConfidence
func WithMinConfidence(v float64) Option {
	return func(s *Service) {
		s.minConfidence = v
	}
}

// WithAuditLogger records model load outcomes
func WithAuditLogger(l audit.Logger) Option {
	return func(s *Service) {
		s.auditLogger = l
	}
}

func NewService(detector provider.FaceDetector, reporter StatusReporter, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		detector:      detector,
		reporter:      reporter,
		auditLogger:   &audit.NoOpLogger{},
		logger:        logger.With(slog.String("component", "detection"), slog.String("provider", detector.Name())),
		minConfidence: DefaultMinConfidence,
		loaded:        make(chan struct{}),
		state:         domain.ModelUnloaded,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.ModelState.Set(s.state.Gauge())
	return s
}

// LoadModels starts loading in the background the first time it is called
// and returns the state right after. Later calls change nothing.
func (s *Service) LoadModels(ctx context.Context) domain.ModelState {
	s.loadOnce.Do(func() {
		s.setState(domain.ModelLoading, nil)
		s.reporter.Report(status.MsgModelsLoading)
		go s.load(ctx)
	})
	return s.State()
}

func (s *Service) load(ctx context.Context) {
	defer close(s.loaded)

	start := time.Now()
	err := s.detector.LoadModels(ctx)

	event := audit.Event{
		EventType: audit.EventModelsLoaded,
		Provider:  s.detector.Name(),
		Success:   err == nil,
		Metadata:  map[string]string{"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10)},
	}

	if err != nil {
		event.Error = err.Error()
		s.logger.Error("model load failed", slog.String("error", err.Error()))
		s.setState(domain.ModelFailed, domain.ErrModelLoadFailure.WithError(err))
		s.reporter.Report(status.MsgModelsFailed)
	} else {
		s.logger.Info("models loaded", slog.Duration("duration", time.Since(start)))
		s.setState(domain.ModelReady, nil)
		s.reporter.Report(status.MsgModelsLoaded)
	}

	_ = s.auditLogger.Log(ctx, event)
}

func (s *Service) setState(state domain.ModelState, err error) {
	s.mu.Lock()
	s.state, s.err = state, err
	s.mu.Unlock()
	metrics.ModelState.Set(state.Gauge())
}

// Wait blocks until loading finished and returns its error. It returns
// immediately with ErrModelNotReady if loading was never started.
func (s *Service) Wait(ctx context.Context) error {
	if s.State() == domain.ModelUnloaded {
		return domain.ErrModelNotReady
	}
	select {
	case <-s.loaded:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) State() domain.ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is the load failure reason, wrapped in ErrModelLoadFailure
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Ready reports whether Detect would be accepted
func (s *Service) Ready() bool {
	return s.State() == domain.ModelReady
}

// Detect runs the backend over src. Faces below the confidence threshold are
// dropped and the rest are mapped into src's native pixels.
func (s *Service) Detect(ctx context.Context, src *domain.VisualSource) ([]domain.FaceBox, error) {
	if !s.Ready() {
		return nil, domain.ErrModelNotReady
	}

	mode := metrics.ModeLive
	if src.Kind == domain.SourceStaticImage {
		mode = metrics.ModeImage
	}

	start := time.Now()
	res, err := s.detector.DetectFaces(ctx, src)
	metrics.DetectionDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, domain.ErrTransientDetection.WithError(err)
	}

	boxes := Resize(res, src.Width, src.Height, s.minConfidence)
	metrics.FacesDetectedTotal.WithLabelValues(mode).Add(float64(len(boxes)))
	return boxes, nil
}

// Resize maps a backend result into a width x height pixel space, drops faces
// under minConfidence and clamps boxes to the bounds. Boxes that fall
// entirely outside are discarded.
func Resize(res *provider.Result, width, height int, minConfidence float64) []domain.FaceBox {
	if res == nil {
		return []domain.FaceBox{}
	}

	sx, sy := 1.0, 1.0
	if res.Width > 0 && res.Height > 0 {
		sx = float64(width) / res.Width
		sy = float64(height) / res.Height
	}
	w, h := float64(width), float64(height)

	boxes := make([]domain.FaceBox, 0, len(res.Faces))
	for _, f := range res.Faces {
		if f.Confidence < minConfidence {
			continue
		}

		x0 := clamp(f.BoundingBox.X*sx, 0, w)
		y0 := clamp(f.BoundingBox.Y*sy, 0, h)
		x1 := clamp((f.BoundingBox.X+f.BoundingBox.Width)*sx, 0, w)
		y1 := clamp((f.BoundingBox.Y+f.BoundingBox.Height)*sy, 0, h)
		if x1 <= x0 || y1 <= y0 {
			continue
		}

		box := domain.FaceBox{
			X:          x0,
			Y:          y0,
			Width:      x1 - x0,
			Height:     y1 - y0,
			Confidence: f.Confidence,
		}
		for _, lm := range f.Landmarks {
			box.Landmarks = append(box.Landmarks, domain.Point{
				X: clamp(lm.X*sx, 0, w),
				Y: clamp(lm.Y*sy, 0, h),
			})
		}
		boxes = append(boxes, box)
	}
	return boxes
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
