package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/metrics"
	"github.com/saturnino-fabrica-de-software/facewatch/internal/ws"
)

const (
	defaultInterval = 5 * time.Second
	defaultMaxQueue = 256
)

// Worker queues events in memory and delivers them with exponential
// backoff. It satisfies the live loop's publisher contract: Publish never
// blocks on the network.
type Worker struct {
	webhook     *Webhook
	service     *Service
	maxAttempts int
	maxQueue    int
	interval    time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu      sync.Mutex
	pending []*Job
	wake    chan struct{}
}

type Option func(*Worker)

func WithClock(c clock.Clock) Option {
	return func(w *Worker) { w.clock = c }
}

// WithInterval sets how often the queue is polled for due retries.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithMaxQueue caps pending jobs; the oldest job is dropped on overflow.
func WithMaxQueue(n int) Option {
	return func(w *Worker) { w.maxQueue = n }
}

func NewWorker(webhook *Webhook, service *Service, maxAttempts int, logger *slog.Logger, opts ...Option) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	w := &Worker{
		webhook:     webhook,
		service:     service,
		maxAttempts: maxAttempts,
		maxQueue:    defaultMaxQueue,
		interval:    defaultInterval,
		clock:       clock.New(),
		logger:      logger.With(slog.String("component", "webhook")),
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish enqueues the event when the webhook subscribes to it.
func (w *Worker) Publish(eventType ws.EventType, data interface{}) {
	if !w.webhook.Subscribes(string(eventType)) {
		return
	}

	now := w.clock.Now().UTC()
	event := EventPayload{
		ID:        uuid.New(),
		Type:      string(eventType),
		Data:      data,
		Timestamp: now,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to marshal webhook event",
			slog.String("event", string(eventType)),
			slog.String("error", err.Error()),
		)
		return
	}

	job := &Job{
		ID:          event.ID,
		EventType:   event.Type,
		Payload:     payload,
		MaxAttempts: w.maxAttempts,
		NextRetryAt: now,
		CreatedAt:   now,
	}

	w.mu.Lock()
	if len(w.pending) >= w.maxQueue {
		dropped := w.pending[0]
		w.pending = w.pending[1:]
		metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.DeliveryDropped).Inc()
		w.logger.Warn("webhook queue full, dropping oldest job",
			slog.String("job_id", dropped.ID.String()),
			slog.String("event", dropped.EventType),
		)
	}
	w.pending = append(w.pending, job)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued jobs, including ones awaiting retry.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Worker) Run(ctx context.Context) {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	w.logger.Info("webhook worker started", slog.String("url", w.webhook.URL))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("webhook worker stopped", slog.Int("pending", w.Pending()))
			return
		case <-ticker.C:
			w.processQueue(ctx)
		case <-w.wake:
			w.processQueue(ctx)
		}
	}
}

// processQueue delivers every due job. Jobs are taken out of the queue while
// in flight so Publish is never held up by a slow endpoint.
func (w *Worker) processQueue(ctx context.Context) {
	now := w.clock.Now()

	w.mu.Lock()
	var due []*Job
	kept := w.pending[:0]
	for _, job := range w.pending {
		if !job.NextRetryAt.After(now) {
			due = append(due, job)
		} else {
			kept = append(kept, job)
		}
	}
	w.pending = kept
	w.mu.Unlock()

	for _, job := range due {
		if ctx.Err() != nil {
			w.requeue(job)
			continue
		}
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job *Job) {
	job.Attempts++
	err := w.service.Send(ctx, w.webhook, job, w.clock.Now())
	if err == nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.DeliveryDelivered).Inc()
		w.logger.Debug("webhook delivered",
			slog.String("job_id", job.ID.String()),
			slog.String("event", job.EventType),
			slog.Int("attempts", job.Attempts),
		)
		return
	}

	job.LastError = err.Error()
	w.scheduleRetry(job)
}

func (w *Worker) scheduleRetry(job *Job) {
	if job.Attempts >= job.MaxAttempts {
		metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.DeliveryFailed).Inc()
		w.logger.Error("webhook delivery failed",
			slog.String("job_id", job.ID.String()),
			slog.String("event", job.EventType),
			slog.Int("attempts", job.Attempts),
			slog.String("error", job.LastError),
		)
		return
	}

	delay := time.Duration(1<<(job.Attempts-1)) * time.Second
	job.NextRetryAt = w.clock.Now().Add(delay)
	metrics.WebhookDeliveriesTotal.WithLabelValues(metrics.DeliveryRetried).Inc()

	w.logger.Info("webhook job scheduled for retry",
		slog.String("job_id", job.ID.String()),
		slog.Int("attempts", job.Attempts),
		slog.Time("next_retry", job.NextRetryAt),
		slog.String("error", job.LastError),
	)

	w.requeue(job)
}

func (w *Worker) requeue(job *Job) {
	w.mu.Lock()
	w.pending = append(w.pending, job)
	w.mu.Unlock()
}
