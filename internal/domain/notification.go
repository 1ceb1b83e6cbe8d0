package domain

import "time"

// NotificationType enumerates notification categories.
type NotificationType string

const (
	NotificationForwardedToMidLevel NotificationType = "complaint_forwarded_to_am"
	NotificationForwardedToFinal    NotificationType = "complaint_forwarded_to_manager"
	NotificationSentToVendor        NotificationType = "complaint_sent_to_vendor"
	NotificationResolved            NotificationType = "complaint_resolved"
	NotificationRejected            NotificationType = "complaint_rejected"
	NotificationMessage             NotificationType = "message"
)

// NotificationMetadata carries context about the triggering transition.
type NotificationMetadata struct {
	ComplaintID string `json:"complaintId,omitempty"`
	Actor       string `json:"actor,omitempty"`
	ActorRole   Role   `json:"actorRole,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Notification is a per-recipient inbox row.
type Notification struct {
	ID          string
	RecipientID string
	Message     string
	Type        NotificationType
	RelatedID   string
	Read        bool
	Metadata    NotificationMetadata
	CreatedAt   time.Time
}
