package apiclient

import (
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

type complaintPayload struct {
	ID                       string     `json:"id,omitempty"`
	Title                    string     `json:"title"`
	Description              string     `json:"description"`
	Priority                 string     `json:"priority"`
	Status                   string     `json:"status"`
	SubmitterID              string     `json:"submitter_id"`
	SubmitterName            string     `json:"submitter_name"`
	AssigneeID               *string    `json:"assignee_id"`
	Notes                    string     `json:"notes"`
	ProcurementJustification *string    `json:"procurement_justification"`
	RejectionReason          *string    `json:"rejection_reason"`
	RejectedBy               *string    `json:"rejected_by"`
	RejectedAt               *time.Time `json:"rejected_at"`
	Version                  int64      `json:"version"`
	CreatedAt                time.Time  `json:"created_at,omitempty"`
	UpdatedAt                time.Time  `json:"updated_at,omitempty"`
	ResolvedAt               *time.Time `json:"resolved_at"`
}

func toComplaintPayload(c *domain.Complaint) complaintPayload {
	p := complaintPayload{
		ID:                       c.ID,
		Title:                    c.Title,
		Description:              c.Description,
		Priority:                 string(c.Priority),
		Status:                   string(c.Status),
		SubmitterID:              c.SubmitterID,
		SubmitterName:            c.SubmitterName,
		AssigneeID:               c.AssigneeID,
		Notes:                    c.Notes,
		ProcurementJustification: c.ProcurementJustification,
		Version:                  c.Version,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
		ResolvedAt:               c.ResolvedAt,
	}
	if c.Rejection != nil {
		reason := c.Rejection.Reason
		by := string(c.Rejection.RejectedBy)
		at := c.Rejection.RejectedAt
		p.RejectionReason, p.RejectedBy, p.RejectedAt = &reason, &by, &at
	}
	return p
}

func (p complaintPayload) toDomain() domain.Complaint {
	c := domain.Complaint{
		ID:                       p.ID,
		Title:                    p.Title,
		Description:              p.Description,
		Priority:                 domain.Priority(p.Priority),
		Status:                   domain.ComplaintStatus(p.Status),
		SubmitterID:              p.SubmitterID,
		SubmitterName:            p.SubmitterName,
		AssigneeID:               p.AssigneeID,
		Notes:                    p.Notes,
		ProcurementJustification: p.ProcurementJustification,
		Version:                  p.Version,
		CreatedAt:                p.CreatedAt,
		UpdatedAt:                p.UpdatedAt,
		ResolvedAt:               p.ResolvedAt,
	}
	if c.Priority == "" {
		c.Priority = domain.PriorityMedium
	}
	if p.RejectionReason != nil {
		r := &domain.Rejection{Reason: *p.RejectionReason}
		if p.RejectedBy != nil {
			r.RejectedBy = domain.Role(*p.RejectedBy)
		}
		if p.RejectedAt != nil {
			r.RejectedAt = *p.RejectedAt
		}
		c.Rejection = r
	}
	return c
}

type notificationPayload struct {
	ID        string                      `json:"id"`
	UserID    string                      `json:"user_id"`
	Message   string                      `json:"message"`
	Type      string                      `json:"type"`
	RelatedID string                      `json:"related_id"`
	Read      bool                        `json:"read"`
	Metadata  domain.NotificationMetadata `json:"metadata"`
	CreatedAt time.Time                   `json:"created_at"`
}

func toNotificationPayload(n domain.Notification) notificationPayload {
	return notificationPayload{
		ID:        n.ID,
		UserID:    n.RecipientID,
		Message:   n.Message,
		Type:      string(n.Type),
		RelatedID: n.RelatedID,
		Read:      n.Read,
		Metadata:  n.Metadata,
		CreatedAt: n.CreatedAt,
	}
}

func (p notificationPayload) toDomain() domain.Notification {
	return domain.Notification{
		ID:          p.ID,
		RecipientID: p.UserID,
		Message:     p.Message,
		Type:        domain.NotificationType(p.Type),
		RelatedID:   p.RelatedID,
		Read:        p.Read,
		Metadata:    p.Metadata,
		CreatedAt:   p.CreatedAt,
	}
}

type vendorPayload struct {
	ID           string    `json:"id,omitempty"`
	VendorID     string    `json:"vendor_id"`
	SentAt       time.Time `json:"sent_date"`
	HasResponded bool      `json:"has_responded"`
}

type quoteResponsePayload struct {
	ID               string     `json:"id,omitempty"`
	QuoteRequestID   string     `json:"quote_request_id"`
	VendorID         string     `json:"vendor_id"`
	Amount           float64    `json:"quote_amount"`
	DeliveryTimeline string     `json:"delivery_timeline"`
	Proposal         string     `json:"proposal_text"`
	Status           string     `json:"status"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	ReviewerID       *string    `json:"reviewed_by"`
	ReviewNotes      string     `json:"review_notes"`
}

func toQuoteResponsePayload(r *domain.QuoteResponse) quoteResponsePayload {
	return quoteResponsePayload{
		ID:               r.ID,
		QuoteRequestID:   r.QuoteRequestID,
		VendorID:         r.VendorID,
		Amount:           r.Amount,
		DeliveryTimeline: r.DeliveryTimeline,
		Proposal:         r.Proposal,
		Status:           string(r.Status),
		SubmittedAt:      r.SubmittedAt,
		ReviewedAt:       r.ReviewedAt,
		ReviewerID:       r.ReviewerID,
		ReviewNotes:      r.ReviewNotes,
	}
}

func (p quoteResponsePayload) toDomain() domain.QuoteResponse {
	return domain.QuoteResponse{
		ID:               p.ID,
		QuoteRequestID:   p.QuoteRequestID,
		VendorID:         p.VendorID,
		Amount:           p.Amount,
		DeliveryTimeline: p.DeliveryTimeline,
		Proposal:         p.Proposal,
		Status:           domain.QuoteResponseStatus(p.Status),
		SubmittedAt:      p.SubmittedAt,
		ReviewedAt:       p.ReviewedAt,
		ReviewerID:       p.ReviewerID,
		ReviewNotes:      p.ReviewNotes,
	}
}

type quoteRequestPayload struct {
	ID           string                 `json:"id,omitempty"`
	ComplaintID  string                 `json:"complaint_id"`
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	Requirements string                 `json:"requirements"`
	Budget       *float64               `json:"budget"`
	Priority     string                 `json:"priority"`
	DueDate      *time.Time             `json:"due_date"`
	Status       string                 `json:"status"`
	CreatedBy    string                 `json:"created_by"`
	Vendors      []vendorPayload        `json:"vendors"`
	Responses    []quoteResponsePayload `json:"responses"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at,omitempty"`
}

func toQuoteRequestPayload(q *domain.QuoteRequest) quoteRequestPayload {
	p := quoteRequestPayload{
		ID:           q.ID,
		ComplaintID:  q.ComplaintID,
		Title:        q.Title,
		Description:  q.Description,
		Requirements: q.Requirements,
		Budget:       q.Budget,
		Priority:     string(q.Priority),
		DueDate:      q.DueDate,
		Status:       string(q.Status),
		CreatedBy:    q.CreatedBy,
		Vendors:      make([]vendorPayload, 0, len(q.Vendors)),
	}
	for _, v := range q.Vendors {
		p.Vendors = append(p.Vendors, vendorPayload{ID: v.ID, VendorID: v.VendorID, SentAt: v.SentAt, HasResponded: v.HasResponded})
	}
	return p
}

func (p quoteRequestPayload) toDomain() domain.QuoteRequest {
	q := domain.QuoteRequest{
		ID:           p.ID,
		ComplaintID:  p.ComplaintID,
		Title:        p.Title,
		Description:  p.Description,
		Requirements: p.Requirements,
		Budget:       p.Budget,
		Priority:     domain.Priority(p.Priority),
		DueDate:      p.DueDate,
		Status:       domain.QuoteRequestStatus(p.Status),
		CreatedBy:    p.CreatedBy,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	for _, v := range p.Vendors {
		q.Vendors = append(q.Vendors, domain.VendorSelection{ID: v.ID, VendorID: v.VendorID, SentAt: v.SentAt, HasResponded: v.HasResponded})
	}
	for _, r := range p.Responses {
		q.Responses = append(q.Responses, r.toDomain())
	}
	return q
}

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p userPayload) toDomain() domain.User {
	return domain.User{ID: p.ID, Name: p.Name, Email: p.Email, Role: domain.Role(p.Role)}
}
