package audit

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventModelsLoaded  EventType = "MODELS_LOADED"
	EventFaceDetected  EventType = "FACE_DETECTED"
	EventImageDetected EventType = "IMAGE_DETECTED"
	EventStreamStarted EventType = "STREAM_STARTED"
	EventStreamStopped EventType = "STREAM_STOPPED"
)

// Event is a record of an operation that touched a camera or a face image.
// Face pixels are never included; only counts and sizes.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType EventType         `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger writes one structured record per event: info on success, warn
// on failure.
type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.Time("event_time", event.Timestamp),
		slog.Bool("success", event.Success),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.Provider != "" {
		attrs = append(attrs, slog.String("provider", event.Provider))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", metadataGroup(event.Metadata)))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "audit_event", attrs...)

	return nil
}

// metadataGroup renders metadata as a slog group with stable key order.
func metadataGroup(metadata map[string]string) slog.Value {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, metadata[k]))
	}
	return slog.GroupValue(attrs...)
}

// NoOpLogger discards events; used when auditing is not wired.
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
