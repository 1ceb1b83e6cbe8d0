package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/events"
	"github.com/spec-kit/complaint-workflow/internal/notes"
	"github.com/spec-kit/complaint-workflow/internal/quote"
	"github.com/spec-kit/complaint-workflow/internal/workflow"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// QuoteResponseInput is a vendor's offer.
type QuoteResponseInput struct {
	Amount           float64
	DeliveryTimeline string
	Proposal         string
}

func (s *WorkflowService) openQuoteRequest(ctx context.Context, sess domain.Session, c *domain.Complaint, draft workflow.QuoteDraft) (*domain.QuoteRequest, error) {
	now := s.now()
	priority := draft.Priority
	if priority == "" {
		priority = c.Priority
	}
	req := &domain.QuoteRequest{
		ComplaintID:  c.ID,
		Title:        strings.TrimSpace(draft.Title),
		Description:  strings.TrimSpace(draft.Description),
		Requirements: strings.TrimSpace(draft.Requirements),
		Budget:       draft.Budget,
		Priority:     priority,
		DueDate:      draft.DueDate,
		Status:       domain.QuoteRequestDraft,
		CreatedBy:    sess.ActorID,
	}
	seen := make(map[string]struct{}, len(draft.VendorIDs))
	for _, vendorID := range draft.VendorIDs {
		vendorID = strings.TrimSpace(vendorID)
		if vendorID == "" {
			continue
		}
		if _, dup := seen[vendorID]; dup {
			continue
		}
		seen[vendorID] = struct{}{}
		req.Vendors = append(req.Vendors, domain.VendorSelection{VendorID: vendorID, SentAt: now})
	}
	if len(req.Vendors) > 0 {
		req.Status = domain.QuoteRequestOpen
	}
	if err := s.quotes.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("quote request opened",
		zap.String("complaint_id", c.ID),
		zap.String("quote_request_id", req.ID),
		zap.Int("vendors", len(req.Vendors)))
	return req, nil
}

// GetQuoteRequest returns a request with its vendors and responses. Vendors
// only see requests they were invited to.
func (s *WorkflowService) GetQuoteRequest(ctx context.Context, sess domain.Session, id string) (*domain.QuoteRequest, error) {
	req, err := s.quotes.GetRequest(domain.WithSession(ctx, sess), id)
	if err != nil {
		return nil, err
	}
	switch {
	case sess.Role.Staff():
		return req, nil
	case sess.Role == domain.RoleVendor && req.HasVendor(sess.ActorID):
		own, _ := req.ResponseFrom(sess.ActorID)
		req.Responses = nil
		if own != nil {
			req.Responses = []domain.QuoteResponse{*own}
		}
		return req, nil
	default:
		return nil, apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
}

// ListQuoteRequests returns the quote requests opened for a complaint.
func (s *WorkflowService) ListQuoteRequests(ctx context.Context, sess domain.Session, complaintID string) ([]domain.QuoteRequest, error) {
	if !sess.Role.Staff() {
		return nil, apperrors.NewForbidden("role may not list quote requests")
	}
	return s.quotes.ListByComplaint(domain.WithSession(ctx, sess), complaintID)
}

// AddVendor invites a vendor. Inviting the same vendor twice is a no-op; the
// first invitation opens a draft request.
func (s *WorkflowService) AddVendor(ctx context.Context, sess domain.Session, requestID, vendorID string) (*domain.QuoteRequest, error) {
	if !canProcure(sess.Role) {
		return nil, apperrors.NewForbidden("role may not invite vendors")
	}
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return nil, apperrors.NewValidationError("vendor id is required", map[string]any{"field": "vendorId"})
	}
	ctx = domain.WithSession(ctx, sess)
	req, err := s.quotes.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.InFlight() {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot invite vendors to a %s quote request", req.Status),
			map[string]any{"quoteRequestId": requestID, "status": req.Status},
		)
	}
	added, err := s.quotes.AddVendor(ctx, requestID, vendorID, s.now())
	if err != nil {
		return nil, err
	}
	if added && req.Status == domain.QuoteRequestDraft {
		if err := s.quotes.UpdateStatus(ctx, requestID, domain.QuoteRequestOpen); err != nil {
			return nil, err
		}
	}
	return s.quotes.GetRequest(ctx, requestID)
}

// CancelQuoteRequest withdraws a request that is still in flight.
func (s *WorkflowService) CancelQuoteRequest(ctx context.Context, sess domain.Session, requestID, reason string) (*domain.QuoteRequest, error) {
	switch sess.Role {
	case domain.RoleManager, domain.RoleAssistantManager, domain.RoleAdmin:
	default:
		return nil, apperrors.NewForbidden("role may not cancel quote requests")
	}
	ctx = domain.WithSession(ctx, sess)
	req, err := s.quotes.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.InFlight() {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot cancel a %s quote request", req.Status),
			map[string]any{"quoteRequestId": requestID, "status": req.Status},
		)
	}
	if err := s.quotes.UpdateStatus(ctx, requestID, domain.QuoteRequestCancelled); err != nil {
		return nil, err
	}
	req.Status = domain.QuoteRequestCancelled

	body := strings.TrimSpace(reason)
	if body == "" {
		body = "Quote request cancelled"
	}
	s.appendComplaintNote(ctx, req.ComplaintID, notes.Generic("Quote request cancelled by "+sess.Role.Label(), body))
	return req, nil
}

// SubmitQuoteResponse records an invited vendor's offer. The first offer
// moves an open request to pending.
func (s *WorkflowService) SubmitQuoteResponse(ctx context.Context, sess domain.Session, requestID string, input QuoteResponseInput) (*domain.QuoteResponse, error) {
	if sess.Role != domain.RoleVendor {
		return nil, apperrors.NewForbidden("only vendors respond to quote requests")
	}
	if input.Amount <= 0 {
		return nil, apperrors.NewValidationError("quote amount must be positive", map[string]any{"field": "amount"})
	}
	if strings.TrimSpace(input.DeliveryTimeline) == "" {
		return nil, apperrors.NewValidationError("delivery timeline is required", map[string]any{"field": "deliveryTimeline"})
	}
	ctx = domain.WithSession(ctx, sess)
	req, err := s.quotes.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.HasVendor(sess.ActorID) {
		return nil, apperrors.NewForbidden("vendor was not invited to this quote request")
	}
	if !req.Status.AcceptsResponses() {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("quote request is %s and accepts no responses", req.Status),
			map[string]any{"quoteRequestId": requestID, "status": req.Status},
		)
	}
	if existing, ok := req.ResponseFrom(sess.ActorID); ok && existing.Status != domain.QuoteResponseNegotiating {
		return nil, apperrors.NewDuplicateResponse("vendor already responded to this quote request", map[string]any{
			"quoteRequestId":  requestID,
			"quoteResponseId": existing.ID,
		})
	}

	resp := &domain.QuoteResponse{
		QuoteRequestID:   requestID,
		VendorID:         sess.ActorID,
		Amount:           input.Amount,
		DeliveryTimeline: strings.TrimSpace(input.DeliveryTimeline),
		Proposal:         strings.TrimSpace(input.Proposal),
		Status:           domain.QuoteResponsePendingReview,
		SubmittedAt:      s.now(),
	}
	if err := s.quotes.SaveResponse(ctx, resp); err != nil {
		return nil, err
	}
	if req.Status == domain.QuoteRequestOpen {
		if err := s.quotes.UpdateStatus(ctx, requestID, domain.QuoteRequestPending); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:        events.EventQuoteResponseSubmitted,
		ComplaintID: req.ComplaintID,
		Actor:       actorOf(sess),
		Payload: events.QuotePayload{
			QuoteRequestID:  requestID,
			QuoteResponseID: resp.ID,
			VendorID:        resp.VendorID,
			Amount:          resp.Amount,
		},
	})
	return resp, nil
}

// ReviewQuoteResponse records the manager's decision on an offer. Accepting
// fulfils the request and notes the choice on the complaint.
func (s *WorkflowService) ReviewQuoteResponse(ctx context.Context, sess domain.Session, responseID string, status domain.QuoteResponseStatus, reviewNotes string) (*domain.QuoteResponse, error) {
	if sess.Role != domain.RoleManager && sess.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only managers review quote responses")
	}
	if !status.Reviewable() {
		return nil, apperrors.NewValidationError("review status must be accepted, rejected or negotiating", map[string]any{
			"field": "status",
			"value": status,
		})
	}
	ctx = domain.WithSession(ctx, sess)
	resp, err := s.quotes.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	req, err := s.quotes.GetRequest(ctx, resp.QuoteRequestID)
	if err != nil {
		return nil, err
	}
	if req.Status == domain.QuoteRequestFulfilled || req.Status == domain.QuoteRequestCancelled {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("quote request is %s and accepts no reviews", req.Status),
			map[string]any{"quoteRequestId": req.ID, "status": req.Status},
		)
	}

	now := s.now()
	reviewer := sess.ActorID
	resp.Status = status
	resp.ReviewedAt = &now
	resp.ReviewerID = &reviewer
	resp.ReviewNotes = strings.TrimSpace(reviewNotes)
	if err := s.quotes.ReviewResponse(ctx, resp); err != nil {
		return nil, err
	}

	if status == domain.QuoteResponseAccepted {
		if err := s.quotes.UpdateStatus(ctx, req.ID, domain.QuoteRequestFulfilled); err != nil {
			return nil, err
		}
		body := fmt.Sprintf("Accepted quote of %.2f from vendor %s (%s)", resp.Amount, resp.VendorID, resp.DeliveryTimeline)
		s.appendComplaintNote(ctx, req.ComplaintID, notes.Approved(domain.RoleManager.Label(), body))
		s.publishEvent(ctx, events.Event{
			Type:        events.EventQuoteAccepted,
			ComplaintID: req.ComplaintID,
			Actor:       actorOf(sess),
			Payload: events.QuotePayload{
				QuoteRequestID:  req.ID,
				QuoteResponseID: resp.ID,
				VendorID:        resp.VendorID,
				Amount:          resp.Amount,
			},
		})
	}
	return resp, nil
}

// CompareQuotes ranks the current responses of a request under weights.
func (s *WorkflowService) CompareQuotes(ctx context.Context, sess domain.Session, requestID string, weights quote.Weights) ([]quote.Score, error) {
	if !sess.Role.Staff() {
		return nil, apperrors.NewForbidden("role may not compare quotes")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	req, err := s.quotes.GetRequest(domain.WithSession(ctx, sess), requestID)
	if err != nil {
		return nil, err
	}
	return quote.Rank(req.Responses, weights)
}

// appendComplaintNote adds one line to the complaint outside a lifecycle
// command. A concurrent writer wins; the note is then logged and skipped.
func (s *WorkflowService) appendComplaintNote(ctx context.Context, complaintID string, entry notes.Entry) {
	if complaintID == "" {
		return
	}
	current, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		s.logger.Warn("failed to load complaint for note", zap.String("complaint_id", complaintID), zap.Error(err))
		return
	}
	next := current.Clone()
	next.Notes = notes.Append(next.Notes, entry)
	next.UpdatedAt = s.now()
	if err := s.complaints.Update(ctx, next, current.Version); err != nil {
		s.logger.Warn("failed to append complaint note", zap.String("complaint_id", complaintID), zap.Error(err))
		return
	}
	s.appendMessages(ctx, current, &workflow.Outcome{Complaint: next, Entries: []notes.Entry{entry}})
}

func canProcure(role domain.Role) bool {
	return role == domain.RoleManager || role == domain.RoleAdmin
}
