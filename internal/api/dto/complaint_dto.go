package dto

import (
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// CreateComplaintRequest payload.
type CreateComplaintRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    domain.Priority `json:"priority"`
}

// ComplaintSummary response.
type ComplaintSummary struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Status         domain.ComplaintStatus `json:"status"`
	Priority       domain.Priority        `json:"priority"`
	SubmitterID    string                 `json:"submitter_id"`
	SubmitterName  string                 `json:"submitter_name,omitempty"`
	AssigneeID     *string                `json:"assignee_id"`
	AwaitingAction bool                   `json:"awaiting_action"`
	Version        int64                  `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	ComplaintSummary
	Description              string             `json:"description"`
	ProcurementJustification *string            `json:"procurement_justification"`
	Rejection                *RejectionResponse `json:"rejection"`
	ResolvedAt               *time.Time         `json:"resolved_at"`
	AvailableActions         []string           `json:"available_actions,omitempty"`
}

// RejectionResponse describes the rejection tag of a closed complaint.
type RejectionResponse struct {
	Reason     string      `json:"reason"`
	RejectedBy domain.Role `json:"rejected_by"`
	RejectedAt time.Time   `json:"rejected_at"`
}

// MessageResponse is one conversation entry.
type MessageResponse struct {
	ID        string             `json:"id,omitempty"`
	Sequence  int                `json:"sequence"`
	Kind      domain.MessageKind `json:"kind"`
	Sender    string             `json:"sender"`
	Recipient string             `json:"recipient,omitempty"`
	Body      string             `json:"body"`
	CreatedAt *time.Time         `json:"created_at,omitempty"`
}

// TransitionRequest is the body of every complaint action. Each action reads
// only the fields it needs.
type TransitionRequest struct {
	Version       int64              `json:"version"`
	Justification string             `json:"justification"`
	Comment       string             `json:"comment"`
	Reason        string             `json:"reason"`
	Notes         string             `json:"notes"`
	Body          string             `json:"body"`
	QuoteRequest  *QuoteRequestDraft `json:"quote_request"`
}

// QuoteRequestDraft describes the quote request opened on procurement approval.
type QuoteRequestDraft struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Requirements string          `json:"requirements"`
	Budget       *float64        `json:"budget"`
	Priority     domain.Priority `json:"priority"`
	DueDate      *time.Time      `json:"due_date"`
	VendorIDs    []string        `json:"vendor_ids"`
}

// TransitionResponse reports the outcome of an action.
type TransitionResponse struct {
	Action       string                  `json:"action"`
	From         domain.ComplaintStatus  `json:"from"`
	To           domain.ComplaintStatus  `json:"to"`
	Complaint    ComplaintDetailResponse `json:"complaint"`
	QuoteRequest *QuoteRequestResponse   `json:"quote_request,omitempty"`
}
