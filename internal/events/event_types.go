package events

import (
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintSubmitted     EventType = "complaint_submitted"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintForwarded     EventType = "complaint_forwarded"
	EventComplaintEscalated     EventType = "complaint_escalated"
	EventComplaintSentToVendor  EventType = "complaint_sent_to_vendor"
	EventComplaintRejected      EventType = "complaint_rejected"
	EventComplaintResolved      EventType = "complaint_resolved"
	EventComplaintReopened      EventType = "complaint_reopened"
	EventComplaintReplied       EventType = "complaint_replied"
	EventQuoteResponseSubmitted EventType = "quote_response_submitted"
	EventQuoteAccepted          EventType = "quote_accepted"
)

// Actor identifies who triggered an event.
type Actor struct {
	ID          string      `json:"id"`
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
}

// Label is the conversation label of the actor, e.g. "ATS Omar".
func (a Actor) Label() string {
	return domain.Session{Role: a.Role, DisplayName: a.DisplayName}.SenderLabel()
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	ComplaintID string      `json:"complaint_id"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// ComplaintSnapshot carries the complaint fields notification templates need.
type ComplaintSnapshot struct {
	Title       string                 `json:"title"`
	SubmitterID string                 `json:"submitter_id"`
	AssigneeID  *string                `json:"assignee_id,omitempty"`
	Status      domain.ComplaintStatus `json:"status"`
}

// TransitionPayload payload for status-changing commands.
type TransitionPayload struct {
	Complaint ComplaintSnapshot      `json:"complaint"`
	Action    string                 `json:"action"`
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Reason    string                 `json:"reason,omitempty"`
}

// ReplyPayload payload for conversation replies.
type ReplyPayload struct {
	Complaint   ComplaintSnapshot `json:"complaint"`
	BodyPreview string            `json:"body_preview"`
}

// QuotePayload payload for quote request activity.
type QuotePayload struct {
	QuoteRequestID  string  `json:"quote_request_id"`
	QuoteResponseID string  `json:"quote_response_id"`
	VendorID        string  `json:"vendor_id"`
	Amount          float64 `json:"amount"`
}
