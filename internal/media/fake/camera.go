// Package fake provides a scripted camera for tests and camera-less
// development runs.
package fake

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/media"
)

// Camera produces synthetic frames at a fixed rate.
type Camera struct {
	// Width and Height override the negotiated size. Zero means honor the
	// requested constraints.
	Width  int
	Height int
	// Interval between frames.
	Interval time.Duration
	// FirstFrameDelay holds the stream in the not-ready state.
	FirstFrameDelay time.Duration
	// MaxFrames ends the stream after that many frames when positive.
	MaxFrames int
	// OpenErr is returned by Open when set.
	OpenErr error

	logger *slog.Logger

	mu        sync.Mutex
	opens     int
	active    int
	maxActive int
	last      media.Constraints
}

// New returns a camera emitting frames every interval.
func New(interval time.Duration, logger *slog.Logger) *Camera {
	return &Camera{
		Interval: interval,
		logger:   logger,
	}
}

func (c *Camera) Open(ctx context.Context, constraints media.Constraints) (*media.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.opens++
	c.last = constraints
	openErr := c.OpenErr
	if openErr == nil {
		c.active++
		if c.active > c.maxActive {
			c.maxActive = c.active
		}
	}
	width, height := c.Width, c.Height
	c.mu.Unlock()

	if openErr != nil {
		return nil, openErr
	}

	if width == 0 {
		width = constraints.Width
	}
	if height == 0 {
		height = constraints.Height
	}

	r := &reader{
		width:     width,
		height:    height,
		interval:  c.Interval,
		delay:     c.FirstFrameDelay,
		maxFrames: c.MaxFrames,
		closed:    make(chan struct{}),
	}

	var once sync.Once
	closeFn := func() error {
		once.Do(func() {
			close(r.closed)
			c.mu.Lock()
			c.active--
			c.mu.Unlock()
		})
		return nil
	}

	return media.NewStream(r, closeFn, c.logger), nil
}

// Opens reports how many times Open was called.
func (c *Camera) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Active reports how many acquired streams have not been released.
func (c *Camera) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// MaxActive reports the highest number of simultaneously held streams.
func (c *Camera) MaxActive() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxActive
}

// LastConstraints returns the constraints passed to the latest Open.
func (c *Camera) LastConstraints() media.Constraints {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type reader struct {
	width, height int
	interval      time.Duration
	delay         time.Duration
	maxFrames     int
	closed        chan struct{}
	n             int
}

func (r *reader) Read() (image.Image, func(), error) {
	wait := r.interval
	if r.n == 0 && r.delay > 0 {
		wait = r.delay
	}
	if r.maxFrames > 0 && r.n >= r.maxFrames {
		return nil, nil, io.EOF
	}

	select {
	case <-r.closed:
		return nil, nil, io.EOF
	case <-time.After(wait):
	}

	r.n++
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	shade := uint8(r.n % 256)
	for y := 0; y < r.height; y += 8 {
		for x := 0; x < r.width; x += 8 {
			img.SetNRGBA(x, y, color.NRGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	return img, func() {}, nil
}
