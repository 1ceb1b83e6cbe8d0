package domain

import "time"

// QuoteRequestStatus enumerates procurement solicitation states.
type QuoteRequestStatus string

const (
	QuoteRequestDraft     QuoteRequestStatus = "draft"
	QuoteRequestOpen      QuoteRequestStatus = "open"
	QuoteRequestPending   QuoteRequestStatus = "pending"
	QuoteRequestFulfilled QuoteRequestStatus = "fulfilled"
	QuoteRequestCancelled QuoteRequestStatus = "cancelled"
)

// InFlight reports whether vendors may still be waiting on this request.
func (s QuoteRequestStatus) InFlight() bool {
	return s == QuoteRequestDraft || s == QuoteRequestOpen || s == QuoteRequestPending
}

// AcceptsResponses reports whether vendors may submit offers.
func (s QuoteRequestStatus) AcceptsResponses() bool {
	return s == QuoteRequestOpen || s == QuoteRequestPending
}

// QuoteResponseStatus enumerates review states of a vendor offer.
type QuoteResponseStatus string

const (
	QuoteResponsePendingReview QuoteResponseStatus = "pending_review"
	QuoteResponseAccepted      QuoteResponseStatus = "accepted"
	QuoteResponseRejected      QuoteResponseStatus = "rejected"
	QuoteResponseNegotiating   QuoteResponseStatus = "negotiating"
)

// Reviewable reports whether s is a valid review outcome.
func (s QuoteResponseStatus) Reviewable() bool {
	return s == QuoteResponseAccepted || s == QuoteResponseRejected || s == QuoteResponseNegotiating
}

// VendorSelection records a vendor invited to quote.
type VendorSelection struct {
	ID           string
	VendorID     string
	SentAt       time.Time
	HasResponded bool
}

// QuoteRequest solicits vendor offers for a complaint's procurement.
type QuoteRequest struct {
	ID           string
	ComplaintID  string
	Title        string
	Description  string
	Requirements string
	Budget       *float64
	Priority     Priority
	DueDate      *time.Time
	Status       QuoteRequestStatus
	CreatedBy    string
	Vendors      []VendorSelection
	Responses    []QuoteResponse
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasVendor reports whether vendorID was invited.
func (q *QuoteRequest) HasVendor(vendorID string) bool {
	for _, v := range q.Vendors {
		if v.VendorID == vendorID {
			return true
		}
	}
	return false
}

// ResponseFrom returns the current offer of a vendor, if any.
func (q *QuoteRequest) ResponseFrom(vendorID string) (*QuoteResponse, bool) {
	for i := range q.Responses {
		if q.Responses[i].VendorID == vendorID {
			return &q.Responses[i], true
		}
	}
	return nil, false
}

// QuoteResponse is a vendor's price and timeline offer.
type QuoteResponse struct {
	ID               string
	QuoteRequestID   string
	VendorID         string
	Amount           float64
	DeliveryTimeline string
	Proposal         string
	Status           QuoteResponseStatus
	SubmittedAt      time.Time
	ReviewedAt       *time.Time
	ReviewerID       *string
	ReviewNotes      string
}
