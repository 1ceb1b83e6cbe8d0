package notify

import (
	"fmt"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

const (
	MessageForwardedToMidLevel = "Your complaint has been forwarded to the Assistant Manager for review."
	MessageForwardedToFinal    = "Your complaint has been escalated to the Manager for further review."
	MessageSentToVendor        = "Your complaint has been sent to the Vendor for repair assessment."
)

// ResolvedMessage tells the submitter their complaint is done.
func ResolvedMessage(title string) string {
	return fmt.Sprintf("Your complaint \"%s\" has been resolved by the support team.", title)
}

// RejectedMessage tells the handling team a complaint was rejected upstream.
func RejectedMessage(title string, by domain.Role, reason string) string {
	return fmt.Sprintf("Complaint \"%s\" was rejected by the %s: %s", title, by.Label(), reason)
}

// ReplyMessage announces a new conversation message. sender is the display
// name for submitter replies and the full sender label for staff replies.
func ReplyMessage(sender, title string) string {
	return fmt.Sprintf("New message from %s on complaint \"%s\"", sender, title)
}

// Compose builds an unsent notification for one recipient.
func Compose(recipientID string, typ domain.NotificationType, message, complaintID string, actor domain.Session, status domain.ComplaintStatus) domain.Notification {
	return domain.Notification{
		RecipientID: recipientID,
		Message:     message,
		Type:        typ,
		RelatedID:   complaintID,
		Metadata: domain.NotificationMetadata{
			ComplaintID: complaintID,
			Actor:       actor.ActorID,
			ActorRole:   actor.Role,
			Status:      string(status),
		},
	}
}
