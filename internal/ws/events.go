package ws

import (
	"time"
)

type EventType string

const (
	EventStatusChanged  EventType = "status.changed"
	EventStreamStarted  EventType = "stream.started"
	EventStreamStopped  EventType = "stream.stopped"
	EventDetectionFrame EventType = "detection.frame"
	EventDetectionImage EventType = "detection.image"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
