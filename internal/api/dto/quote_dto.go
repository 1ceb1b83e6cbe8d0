package dto

import (
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// QuoteRequestResponse describes a vendor solicitation.
type QuoteRequestResponse struct {
	ID           string                    `json:"id"`
	ComplaintID  string                    `json:"complaint_id"`
	Title        string                    `json:"title"`
	Description  string                    `json:"description"`
	Requirements string                    `json:"requirements,omitempty"`
	Budget       *float64                  `json:"budget"`
	Priority     domain.Priority           `json:"priority"`
	DueDate      *time.Time                `json:"due_date"`
	Status       domain.QuoteRequestStatus `json:"status"`
	CreatedBy    string                    `json:"created_by"`
	Vendors      []VendorResponse          `json:"vendors"`
	Responses    []QuoteResponseResponse   `json:"responses"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// VendorResponse is one invited vendor.
type VendorResponse struct {
	VendorID     string    `json:"vendor_id"`
	SentAt       time.Time `json:"sent_at"`
	HasResponded bool      `json:"has_responded"`
}

// QuoteResponseResponse is one vendor offer.
type QuoteResponseResponse struct {
	ID               string                     `json:"id"`
	QuoteRequestID   string                     `json:"quote_request_id"`
	VendorID         string                     `json:"vendor_id"`
	Amount           float64                    `json:"amount"`
	DeliveryTimeline string                     `json:"delivery_timeline"`
	Proposal         string                     `json:"proposal,omitempty"`
	Status           domain.QuoteResponseStatus `json:"status"`
	SubmittedAt      time.Time                  `json:"submitted_at"`
	ReviewedAt       *time.Time                 `json:"reviewed_at"`
	ReviewerID       *string                    `json:"reviewer_id"`
	ReviewNotes      string                     `json:"review_notes,omitempty"`
}

// AddVendorRequest payload.
type AddVendorRequest struct {
	VendorID string `json:"vendor_id"`
}

// CancelQuoteRequest payload.
type CancelQuoteRequest struct {
	Reason string `json:"reason"`
}

// SubmitQuoteRequest is a vendor's offer.
type SubmitQuoteRequest struct {
	Amount           float64 `json:"amount"`
	DeliveryTimeline string  `json:"delivery_timeline"`
	Proposal         string  `json:"proposal"`
}

// ReviewQuoteRequest payload.
type ReviewQuoteRequest struct {
	Status domain.QuoteResponseStatus `json:"status"`
	Notes  string                     `json:"notes"`
}

// CompareQuotesRequest selects the weights by preset name or explicit values.
type CompareQuotesRequest struct {
	Preset         string   `json:"preset"`
	CostWeight     *float64 `json:"cost_weight"`
	TimelineWeight *float64 `json:"timeline_weight"`
}

// QuoteScoreResponse is one ranked offer.
type QuoteScoreResponse struct {
	Rank          int     `json:"rank"`
	ResponseID    string  `json:"response_id"`
	VendorID      string  `json:"vendor_id"`
	Amount        float64 `json:"amount"`
	TimelineDays  int     `json:"timeline_days"`
	CostScore     int     `json:"cost_score"`
	TimelineScore int     `json:"timeline_score"`
	WeightedScore int     `json:"weighted_score"`
}
