package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// WebhookChannel posts notifications as JSON to an external endpoint.
type WebhookChannel struct {
	client *resty.Client
	url    string
}

// NewWebhookChannel creates a channel for url. A nil client gets a default
// resty client with a 10s timeout.
func NewWebhookChannel(client *resty.Client, url string) *WebhookChannel {
	if client == nil {
		client = resty.New().SetTimeout(10 * time.Second)
	}
	return &WebhookChannel{client: client, url: strings.TrimSpace(url)}
}

type webhookPayload struct {
	ID        string                      `json:"id"`
	UserID    string                      `json:"user_id"`
	Message   string                      `json:"message"`
	Type      domain.NotificationType     `json:"type"`
	RelatedID string                      `json:"related_id"`
	Metadata  domain.NotificationMetadata `json:"metadata"`
	CreatedAt time.Time                   `json:"created_at"`
}

// Send delivers n. Any non-2xx response is a failure.
func (w *WebhookChannel) Send(ctx context.Context, n domain.Notification) error {
	if w.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", n.ID).
		SetBody(webhookPayload{
			ID:        n.ID,
			UserID:    n.RecipientID,
			Message:   n.Message,
			Type:      n.Type,
			RelatedID: n.RelatedID,
			Metadata:  n.Metadata,
			CreatedAt: n.CreatedAt,
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
