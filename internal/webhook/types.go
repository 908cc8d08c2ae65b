package webhook

import (
	"time"

	"github.com/google/uuid"
)

// Webhook is the outbound endpoint that receives session and detection events.
type Webhook struct {
	URL    string
	Secret string
	// Events lists the event types delivered; empty means all of them.
	Events []string
}

// Subscribes reports whether eventType should be delivered to w.
func (w *Webhook) Subscribes(eventType string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Job is one pending delivery.
type Job struct {
	ID          uuid.UUID
	EventType   string
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NextRetryAt time.Time
	LastError   string
	CreatedAt   time.Time
}

type EventPayload struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
