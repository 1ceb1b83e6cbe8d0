package dto

import (
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// NotificationResponse is one inbox row.
type NotificationResponse struct {
	ID        string                      `json:"id"`
	Message   string                      `json:"message"`
	Type      domain.NotificationType     `json:"type"`
	RelatedID string                      `json:"related_id,omitempty"`
	Read      bool                        `json:"read"`
	Metadata  domain.NotificationMetadata `json:"metadata"`
	CreatedAt time.Time                   `json:"created_at"`
}

// InboxResponse is the polled snapshot of a session.
type InboxResponse struct {
	Unread              []NotificationResponse `json:"unread"`
	Complaints          []ComplaintSummary     `json:"complaints"`
	TakenAt             *time.Time             `json:"taken_at"`
	PollIntervalSeconds int                    `json:"poll_interval_seconds"`
	LastError           string                 `json:"last_error,omitempty"`
}
