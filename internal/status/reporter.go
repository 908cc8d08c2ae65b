// Package status holds the single human-readable status line.
package status

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	MsgModelsLoading  = "Loading AI models... Please wait"
	MsgModelsLoaded   = "Models loaded successfully! You can upload an image or start webcam."
	MsgModelsFailed   = "Error loading models."
	MsgModelsNotReady = "Models still loading."
	MsgDetecting      = "Detecting faces..."
	MsgNoFaces        = "No faces detected."
	MsgDetectFailed   = "Error detecting faces."
	MsgDecodeFailed   = "Could not decode image."
	MsgWebcamStarted  = "Webcam started. Detecting faces..."
	MsgWebcamDenied   = "Cannot access webcam. Please allow camera permission."
	MsgWebcamMissing  = "No webcam available."
	MsgNoFacesLive    = "No faces detected (live)."
	MsgLiveFailing    = "Live detection is failing, retrying..."
	MsgWebcamStopped  = "Webcam stopped."
	facesDetected     = "%d face(s) detected!"
	facesDetectedLive = "%d face(s) detected (live)."
)

// FacesDetected formats the one-shot image result line.
func FacesDetected(n int) string {
	if n == 0 {
		return MsgNoFaces
	}
	return fmt.Sprintf(facesDetected, n)
}

// FacesDetectedLive formats the per-tick result line.
func FacesDetectedLive(n int) string {
	if n == 0 {
		return MsgNoFacesLive
	}
	return fmt.Sprintf(facesDetectedLive, n)
}

// Snapshot is the status line at a point in time
type Snapshot struct {
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sink receives every reported line
type Sink func(Snapshot)

// Reporter overwrites one status line and forwards it to sinks. It keeps no
// history and has no severity levels.
type Reporter struct {
	logger *slog.Logger

	mu      sync.RWMutex
	current Snapshot
	sinks   []Sink
}

func NewReporter(logger *slog.Logger) *Reporter {
	return &Reporter{
		logger: logger.With(slog.String("component", "status")),
	}
}

// Subscribe registers a sink. Sinks run synchronously on the reporting
// goroutine and must not block.
func (r *Reporter) Subscribe(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, sink)
}

// Report replaces the status line
func (r *Reporter) Report(message string) {
	snap := Snapshot{Message: message, UpdatedAt: time.Now().UTC()}

	r.mu.Lock()
	r.current = snap
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	r.mu.Unlock()

	r.logger.Debug("status changed", slog.String("message", message))

	for _, sink := range sinks {
		sink(snap)
	}
}

// Current returns the last reported line, or "" if nothing was reported
func (r *Reporter) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Message
}

// Snapshot returns the last reported line with its timestamp
func (r *Reporter) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}
