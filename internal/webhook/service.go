package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	SignatureHeader = "X-Facewatch-Signature"
	TimestampHeader = "X-Facewatch-Timestamp"
	EventHeader     = "X-Facewatch-Event"
	DeliveryHeader  = "X-Facewatch-Delivery"
)

// Service performs single delivery attempts; retries belong to the Worker.
type Service struct {
	client *http.Client
}

func NewService(client *http.Client) *Service {
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	return &Service{client: client}
}

// Send posts job's payload to webhook. Any transport error or status >= 400
// is returned so the caller can reschedule.
func (s *Service) Send(ctx context.Context, webhook *Webhook, job *Job, now time.Time) error {
	timestamp := now.Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(webhook.Secret, timestamp, job.Payload))
	req.Header.Set(TimestampHeader, strconv.FormatInt(timestamp, 10))
	req.Header.Set(EventHeader, job.EventType)
	req.Header.Set(DeliveryHeader, job.ID.String())
	req.Header.Set("User-Agent", "Facewatch-Webhook/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("send webhook: HTTP %d", resp.StatusCode)
	}

	return nil
}
