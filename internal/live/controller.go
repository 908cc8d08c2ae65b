// Package live drives the webcam detection loop: one camera session at a
// time, one capture-detect-render cycle per refresh tick.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/audit"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/media"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/metrics"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/status"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/ws"
)

// ErrStartCanceled is returned by Start when Stop ran while the camera was
// still being acquired.
var ErrStartCanceled = errors.New("live: start canceled by stop")

// Detector is the model-gated detection adapter
type Detector interface {
	Ready() bool
	Detect(ctx context.Context, src *domain.VisualSource) ([]domain.FaceBox, error)
}

// Canvas is the video overlay
type Canvas interface {
	Resize(width, height int)
	Render(boxes []domain.FaceBox) error
	Clear()
}

// Reporter receives status line updates
type Reporter interface {
	Report(message string)
}

// ModeSwitcher flips the visible pair to the live video
type ModeSwitcher interface {
	SetMode(mode domain.ViewMode)
}

// Publisher fans events out to viewers
type Publisher interface {
	Publish(eventType ws.EventType, data interface{})
}

// Publishers delivers each event to every publisher in order.
type Publishers []Publisher

func (p Publishers) Publish(eventType ws.EventType, data interface{}) {
	for _, pub := range p {
		pub.Publish(eventType, data)
	}
}

// Config holds loop timing and camera constraints
type Config struct {
	Constraints            media.Constraints
	TickInterval           time.Duration
	MetadataTimeout        time.Duration
	MaxConsecutiveFailures int
}

// DefaultConfig refreshes at 60 Hz with a front-facing 640x480 camera
func DefaultConfig() Config {
	return Config{
		Constraints:            media.DefaultConstraints(),
		TickInterval:           time.Second / 60,
		MetadataTimeout:        10 * time.Second,
		MaxConsecutiveFailures: 30,
	}
}

// Snapshot describes the controller for the API
type Snapshot struct {
	State     domain.LiveState `json:"state"`
	SessionID string           `json:"session_id,omitempty"`
	Width     int              `json:"width,omitempty"`
	Height    int              `json:"height,omitempty"`
	Ticks     uint64           `json:"ticks"`
	Frames    uint64           `json:"frames"`
	StartedAt *time.Time       `json:"started_at,omitempty"`
}

// FrameEvent is published after every rendered tick
type FrameEvent struct {
	SessionID string           `json:"session_id"`
	Faces     []domain.FaceBox `json:"faces"`
	Count     int              `json:"count"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
}

// session is one camera acquisition plus its refresh loop.
type session struct {
	id        uuid.UUID
	stream    *media.Stream
	meta      media.Metadata
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	ticker *clock.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	inFlight atomic.Bool
	ticks    atomic.Uint64
	frames   atomic.Uint64

	// guarded by Controller.mu
	failures int
}

// Controller owns the StreamSession state machine.
type Controller struct {
	camera    media.Camera
	detector  Detector
	canvas    Canvas
	reporter  Reporter
	modes     ModeSwitcher
	publisher Publisher
	audit     audit.Logger
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config

	// startMu serializes Start calls so acquisitions never overlap.
	startMu sync.Mutex

	mu          sync.Mutex
	state       domain.LiveState
	session     *session
	cancelStart context.CancelFunc
	loops       int
}

// Option configures the Controller
type Option func(*Controller)

// WithClock replaces the wall clock driving the refresh ticker
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

// WithModeSwitcher is told when the live pair becomes visible
func WithModeSwitcher(m ModeSwitcher) Option {
	return func(ctrl *Controller) {
		ctrl.modes = m
	}
}

// WithPublisher publishes stream and frame events
func WithPublisher(p Publisher) Option {
	return func(ctrl *Controller) {
		ctrl.publisher = p
	}
}

// WithAuditLogger records session starts and stops
func WithAuditLogger(l audit.Logger) Option {
	return func(ctrl *Controller) {
		ctrl.audit = l
	}
}

func NewController(camera media.Camera, detector Detector, canvas Canvas, reporter Reporter, cfg Config, logger *slog.Logger, opts ...Option) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	c := &Controller{
		camera:   camera,
		detector: detector,
		canvas:   canvas,
		reporter: reporter,
		audit:    &audit.NoOpLogger{},
		clock:    clock.New(),
		logger:   logger.With(slog.String("component", "live")),
		cfg:      cfg,
		state:    domain.LiveIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start tears down any running session and acquires a new one. It returns
// once the camera negotiated its size and the refresh loop is running.
func (c *Controller) Start(ctx context.Context) (Snapshot, error) {
	if !c.detector.Ready() {
		c.reporter.Report(status.MsgModelsNotReady)
		return c.Snapshot(), domain.ErrModelNotReady
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	if prev := c.stop(); prev != nil {
		<-prev.done
	}

	startCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	c.state = domain.LiveStarting
	c.cancelStart = cancel
	c.mu.Unlock()

	// The caller's ctx bounds the acquisition only; the session outlives it.
	release := context.AfterFunc(ctx, cancel)
	defer release()

	stream, meta, err := c.acquire(startCtx)
	if err != nil {
		return c.failStart(startCtx, err)
	}

	sess := &session{
		id:        uuid.New(),
		stream:    stream,
		meta:      meta,
		startedAt: c.clock.Now(),
		done:      make(chan struct{}),
	}
	sess.ctx, sess.cancel = context.WithCancel(context.Background())

	c.mu.Lock()
	if startCtx.Err() != nil {
		c.mu.Unlock()
		sess.cancel()
		stream.Stop()
		return c.failStart(startCtx, startCtx.Err())
	}
	c.cancelStart = nil
	c.canvas.Resize(meta.Width, meta.Height)
	if c.modes != nil {
		c.modes.SetMode(domain.ViewVideo)
	}
	c.reporter.Report(status.MsgWebcamStarted)
	sess.ticker = c.clock.Ticker(c.cfg.TickInterval)
	c.session = sess
	c.state = domain.LiveRunning
	c.loops++
	metrics.SessionsStartedTotal.Inc()
	metrics.ActiveSessions.Set(1)
	c.mu.Unlock()

	go c.run(sess)

	c.logger.Info("webcam session started",
		slog.String("session_id", sess.id.String()),
		slog.Int("width", meta.Width),
		slog.Int("height", meta.Height),
	)
	c.publish(ws.EventStreamStarted, c.Snapshot())
	_ = c.audit.Log(ctx, audit.Event{
		EventType: audit.EventStreamStarted,
		SessionID: sess.id.String(),
		Success:   true,
		Metadata: map[string]string{
			"width":  strconv.Itoa(meta.Width),
			"height": strconv.Itoa(meta.Height),
		},
	})

	return c.Snapshot(), nil
}

// acquire opens the camera and waits for the negotiated size.
func (c *Controller) acquire(ctx context.Context) (*media.Stream, media.Metadata, error) {
	stream, err := c.camera.Open(ctx, c.cfg.Constraints)
	if err != nil {
		return nil, media.Metadata{}, err
	}

	waitCtx := ctx
	if c.cfg.MetadataTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.MetadataTimeout)
		defer cancel()
	}

	meta, err := stream.WaitMetadata(waitCtx)
	if err != nil {
		stream.Stop()
		if ctx.Err() == nil {
			// Tracks opened but never produced a frame.
			return nil, media.Metadata{}, domain.ErrDeviceUnavailable.WithError(fmt.Errorf("wait metadata: %w", err))
		}
		return nil, media.Metadata{}, err
	}
	return stream, meta, nil
}

func (c *Controller) failStart(startCtx context.Context, err error) (Snapshot, error) {
	if startCtx.Err() != nil && !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrDeviceUnavailable) {
		// Stop already moved the state machine back to idle unless the
		// caller's ctx was the one canceled.
		c.mu.Lock()
		c.cancelStart = nil
		if c.state == domain.LiveStarting {
			c.state = domain.LiveIdle
		}
		c.mu.Unlock()
		c.logger.Info("webcam start canceled")
		return c.Snapshot(), ErrStartCanceled
	}

	msg := status.MsgWebcamMissing
	if errors.Is(err, domain.ErrPermissionDenied) {
		msg = status.MsgWebcamDenied
	}
	if !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrDeviceUnavailable) {
		err = domain.ErrDeviceUnavailable.WithError(err)
	}

	c.mu.Lock()
	c.cancelStart = nil
	c.state = domain.LiveError
	c.mu.Unlock()

	c.logger.Warn("webcam start failed", slog.String("error", err.Error()))
	c.reporter.Report(msg)
	_ = c.audit.Log(context.Background(), audit.Event{
		EventType: audit.EventStreamStarted,
		Success:   false,
		Error:     err.Error(),
	})

	return c.Snapshot(), err
}

// Stop ends the active session. Stopping while idle is a no-op apart from
// clearing the overlay and resetting the status line. Stop does not wait for
// the refresh loop to exit, so the loop and a running Detect may call it.
// Canvas and Reporter implementations run under the controller lock and
// must not call back into the Controller.
func (c *Controller) Stop() Snapshot {
	c.stop()
	return c.Snapshot()
}

// stop runs the teardown sequence and returns the detached session, if any.
func (c *Controller) stop() *session {
	c.mu.Lock()
	sess := c.session
	cancelStart := c.cancelStart
	if sess != nil || cancelStart != nil {
		c.state = domain.LiveStopping
	}

	// Once the session is detached no tick can render or report.
	c.session = nil
	c.cancelStart = nil
	if cancelStart != nil {
		cancelStart()
	}
	if sess != nil {
		sess.cancel()
		sess.ticker.Stop()
	}
	c.mu.Unlock()

	if sess != nil {
		sess.stream.Stop()
		metrics.ActiveSessions.Set(0)
	}

	c.mu.Lock()
	c.canvas.Clear()
	c.state = domain.LiveIdle
	c.reporter.Report(status.MsgWebcamStopped)
	c.mu.Unlock()

	if sess != nil {
		c.logger.Info("webcam session stopped",
			slog.String("session_id", sess.id.String()),
			slog.Uint64("ticks", sess.ticks.Load()),
			slog.Uint64("frames", sess.frames.Load()),
		)
		c.publish(ws.EventStreamStopped, map[string]string{"session_id": sess.id.String()})
		_ = c.audit.Log(context.Background(), audit.Event{
			EventType: audit.EventStreamStopped,
			SessionID: sess.id.String(),
			Success:   true,
			Metadata: map[string]string{
				"frames": strconv.FormatUint(sess.frames.Load(), 10),
			},
		})
	}
	return sess
}

// run is the refresh loop of one session.
func (c *Controller) run(sess *session) {
	defer func() {
		sess.wg.Wait()
		c.mu.Lock()
		c.loops--
		c.mu.Unlock()
		close(sess.done)
	}()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-sess.stream.Done():
			c.logger.Warn("camera stream ended", slog.String("session_id", sess.id.String()))
			go c.endSession(sess)
			return
		case <-sess.ticker.C:
			c.tick(sess)
		}
	}
}

// endSession stops sess if it is still the active one.
func (c *Controller) endSession(sess *session) {
	c.mu.Lock()
	current := c.session == sess
	c.mu.Unlock()
	if current {
		c.Stop()
	}
}

func (c *Controller) tick(sess *session) {
	sess.ticks.Add(1)

	// Drop the tick while the previous detection is outstanding.
	if !sess.inFlight.CompareAndSwap(false, true) {
		metrics.LiveTicksTotal.WithLabelValues(metrics.OutcomeSkippedBusy).Inc()
		return
	}

	frame, err := sess.stream.Frame()
	if err != nil {
		sess.inFlight.Store(false)
		if errors.Is(err, media.ErrFrameNotReady) {
			metrics.LiveTicksTotal.WithLabelValues(metrics.OutcomeSkippedNotReady).Inc()
		}
		return
	}

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		defer sess.inFlight.Store(false)

		boxes, err := c.detector.Detect(sess.ctx, frame)
		c.finishTick(sess, frame, boxes, err)
	}()
}

func (c *Controller) finishTick(sess *session, frame *domain.VisualSource, boxes []domain.FaceBox, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != sess || sess.ctx.Err() != nil {
		return
	}

	if err != nil {
		sess.failures++
		metrics.LiveTicksTotal.WithLabelValues(metrics.OutcomeError).Inc()
		c.logger.Warn("live detection failed",
			slog.String("session_id", sess.id.String()),
			slog.Int("consecutive_failures", sess.failures),
			slog.String("error", err.Error()),
		)
		if c.cfg.MaxConsecutiveFailures > 0 && sess.failures == c.cfg.MaxConsecutiveFailures {
			c.reporter.Report(status.MsgLiveFailing)
		}
		return
	}

	sess.failures = 0
	sess.frames.Add(1)
	metrics.LiveTicksTotal.WithLabelValues(metrics.OutcomeDetected).Inc()

	if err := c.canvas.Render(boxes); err != nil {
		c.logger.Error("render overlay", slog.String("error", err.Error()))
		return
	}
	c.reporter.Report(status.FacesDetectedLive(len(boxes)))

	c.publish(ws.EventDetectionFrame, FrameEvent{
		SessionID: sess.id.String(),
		Faces:     boxes,
		Count:     len(boxes),
		Width:     frame.Width,
		Height:    frame.Height,
	})
}

func (c *Controller) publish(eventType ws.EventType, data interface{}) {
	if c.publisher != nil {
		c.publisher.Publish(eventType, data)
	}
}

// State returns the current state machine state
func (c *Controller) State() domain.LiveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the state and, while running, the session details
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state}
	if sess := c.session; sess != nil {
		started := sess.startedAt
		snap.SessionID = sess.id.String()
		snap.Width = sess.meta.Width
		snap.Height = sess.meta.Height
		snap.Ticks = sess.ticks.Load()
		snap.Frames = sess.frames.Load()
		snap.StartedAt = &started
	}
	return snap
}

// Loops reports how many refresh loops are still running. At most one
// belongs to the active session; a stopped session's loop exits shortly
// after Stop returns.
func (c *Controller) Loops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loops
}
