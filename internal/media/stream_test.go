package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chanReader delivers frames pushed by the test and ends when closed.
type chanReader struct {
	frames   chan image.Image
	closed   chan struct{}
	released int
	mu       sync.Mutex
}

func newChanReader() *chanReader {
	return &chanReader{
		frames: make(chan image.Image),
		closed: make(chan struct{}),
	}
}

func (r *chanReader) Read() (image.Image, func(), error) {
	select {
	case img := <-r.frames:
		return img, func() {
			r.mu.Lock()
			r.released++
			r.mu.Unlock()
		}, nil
	case <-r.closed:
		return nil, nil, io.EOF
	}
}

func (r *chanReader) close() error {
	close(r.closed)
	return nil
}

func TestStream_NotReadyUntilFirstFrame(t *testing.T) {
	r := newChanReader()
	s := NewStream(r, r.close, testLogger())
	defer s.Stop()

	_, err := s.Frame()
	assert.ErrorIs(t, err, ErrFrameNotReady)

	r.frames <- image.NewRGBA(image.Rect(0, 0, 320, 240))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	meta, err := s.WaitMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Width: 320, Height: 240}, meta)

	frame, err := s.Frame()
	require.NoError(t, err)
	assert.Equal(t, domain.SourceVideoFrame, frame.Kind)
	assert.Equal(t, 320, frame.Width)
	assert.Equal(t, 240, frame.Height)
	assert.Equal(t, uint64(1), s.Frames())

	r.mu.Lock()
	assert.Equal(t, 1, r.released)
	r.mu.Unlock()
}

func TestStream_WaitMetadataHonorsContext(t *testing.T) {
	r := newChanReader()
	s := NewStream(r, r.close, testLogger())
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.WaitMetadata(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStream_StopIsIdempotent(t *testing.T) {
	r := newChanReader()
	closes := 0
	s := NewStream(r, func() error {
		closes++
		return r.close()
	}, testLogger())

	s.Stop()
	s.Stop()

	assert.Equal(t, 1, closes)

	select {
	case <-s.Done():
	default:
		t.Fatal("stream should be done after stop")
	}

	_, err := s.Frame()
	assert.ErrorIs(t, err, ErrStreamStopped)

	_, err = s.WaitMetadata(context.Background())
	assert.ErrorIs(t, err, ErrStreamStopped)
}

func TestStream_EndsOnEOF(t *testing.T) {
	r := newChanReader()
	s := NewStream(r, func() error { return nil }, testLogger())

	close(r.closed)

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("stream should end when the reader reports EOF")
	}

	_, err := s.Frame()
	assert.True(t, errors.Is(err, ErrStreamStopped))
	s.Stop()
}

func TestClassifyOpenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *domain.AppError
	}{
		{"os permission", fmt.Errorf("open device: %w", os.ErrPermission), domain.ErrPermissionDenied},
		{"message permission", errors.New("open /dev/video0: Permission denied"), domain.ErrPermissionDenied},
		{"no driver", errors.New("failed to find the best driver that fits the constraints"), domain.ErrDeviceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyOpenError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestDefaultConstraints(t *testing.T) {
	c := DefaultConstraints()

	assert.Equal(t, 640, c.Width)
	assert.Equal(t, 480, c.Height)
	assert.Equal(t, FacingUser, c.Facing)
}
