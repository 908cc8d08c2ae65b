package media

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

const (
	readRetryDelay  = 10 * time.Millisecond
	maxReadFailures = 100
)

// Stream owns the hardware tracks of one camera acquisition. A background
// pump keeps the most recent decoded frame.
type Stream struct {
	reader  FrameReader
	closeFn func() error
	logger  *slog.Logger

	mu     sync.RWMutex
	latest image.Image
	meta   Metadata
	frames uint64

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	stopping  chan struct{}
	stopOnce  sync.Once
}

// NewStream starts pumping frames from reader. closeFn releases the
// underlying tracks and must unblock a pending Read.
func NewStream(reader FrameReader, closeFn func() error, logger *slog.Logger) *Stream {
	s := &Stream{
		reader:   reader,
		closeFn:  closeFn,
		logger:   logger,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.done)

	failures := 0
	for {
		img, release, err := s.reader.Read()

		select {
		case <-s.stopping:
			if release != nil {
				release()
			}
			return
		default:
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("camera stream ended")
				return
			}
			failures++
			if failures >= maxReadFailures {
				s.logger.Error("camera stream failing, giving up",
					slog.String("error", err.Error()),
					slog.Int("failures", failures),
				)
				return
			}
			s.logger.Debug("frame read failed", slog.String("error", err.Error()))
			time.Sleep(readRetryDelay)
			continue
		}
		failures = 0

		// The reader may reuse its buffer after release.
		frame := imaging.Clone(img)
		if release != nil {
			release()
		}

		s.mu.Lock()
		s.latest = frame
		s.frames++
		if s.frames == 1 {
			b := frame.Bounds()
			s.meta = Metadata{Width: b.Dx(), Height: b.Dy()}
		}
		s.mu.Unlock()

		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// WaitMetadata blocks until the first frame reveals the negotiated size.
func (s *Stream) WaitMetadata(ctx context.Context) (Metadata, error) {
	select {
	case <-s.ready:
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.meta, nil
	case <-s.done:
		return Metadata{}, ErrStreamStopped
	case <-ctx.Done():
		return Metadata{}, ctx.Err()
	}
}

// Frame returns the current frame, or ErrFrameNotReady before the first one.
func (s *Stream) Frame() (*domain.VisualSource, error) {
	select {
	case <-s.stopping:
		return nil, ErrStreamStopped
	case <-s.done:
		return nil, ErrStreamStopped
	default:
	}

	s.mu.RLock()
	img := s.latest
	s.mu.RUnlock()

	if img == nil {
		return nil, ErrFrameNotReady
	}
	return domain.NewVisualSource(domain.SourceVideoFrame, img, nil), nil
}

// Frames reports how many frames the pump has decoded.
func (s *Stream) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}

// Done is closed once the stream has ended, either by Stop or because the
// device stopped delivering frames.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stop releases all tracks and waits for the pump. Safe to call repeatedly.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopping)
		if err := s.closeFn(); err != nil {
			s.logger.Warn("failed to close camera tracks", slog.String("error", err.Error()))
		}
		<-s.done
	})
}
