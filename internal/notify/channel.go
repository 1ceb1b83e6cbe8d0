// Package notify delivers inbox notifications through a primary channel with
// a fallback, and retries failed deliveries from a queue with exponential
// backoff. Delivery is best effort: a notification is delivered at most once
// and dropped after the last retry.
package notify

import (
	"context"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// Channel creates one notification row somewhere a recipient can read it.
// Implementations must treat the notification ID as an idempotency key.
type Channel interface {
	Send(ctx context.Context, n domain.Notification) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, n domain.Notification) error

// Send calls f.
func (f ChannelFunc) Send(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}
