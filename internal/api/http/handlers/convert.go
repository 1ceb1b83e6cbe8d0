package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/api/dto"
	"github.com/spec-kit/complaint-workflow/internal/auth"
	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/quote"
	"github.com/spec-kit/complaint-workflow/internal/service"
	"github.com/spec-kit/complaint-workflow/internal/workflow"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

func currentSession(c *fiber.Ctx) (domain.Session, error) {
	sess, ok := auth.SessionFromContext(c)
	if !ok || sess.ActorID == "" {
		return domain.Session{}, apperrors.NewUnauthorized("authentication required")
	}
	return sess, nil
}

func complaintSummary(c *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:             c.ID,
		Title:          c.Title,
		Status:         c.Status,
		Priority:       c.Priority,
		SubmitterID:    c.SubmitterID,
		SubmitterName:  c.SubmitterName,
		AssigneeID:     c.AssigneeID,
		AwaitingAction: c.AwaitingAction(),
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func complaintDetail(c *domain.Complaint, actions []workflow.Action) dto.ComplaintDetailResponse {
	resp := dto.ComplaintDetailResponse{
		ComplaintSummary:         complaintSummary(c),
		Description:              c.Description,
		ProcurementJustification: c.ProcurementJustification,
		ResolvedAt:               c.ResolvedAt,
	}
	if c.Rejection != nil {
		resp.Rejection = &dto.RejectionResponse{
			Reason:     c.Rejection.Reason,
			RejectedBy: c.Rejection.RejectedBy,
			RejectedAt: c.Rejection.RejectedAt,
		}
	}
	for _, a := range actions {
		resp.AvailableActions = append(resp.AvailableActions, string(a))
	}
	return resp
}

func complaintSummaries(items []domain.Complaint) []dto.ComplaintSummary {
	out := make([]dto.ComplaintSummary, 0, len(items))
	for i := range items {
		out = append(out, complaintSummary(&items[i]))
	}
	return out
}

func messageResponses(messages []domain.Message) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp := dto.MessageResponse{
			ID:        m.ID,
			Sequence:  m.Sequence,
			Kind:      m.Kind,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			Body:      m.Body,
		}
		if !m.CreatedAt.IsZero() {
			created := m.CreatedAt
			resp.CreatedAt = &created
		}
		out = append(out, resp)
	}
	return out
}

func quoteRequestResponse(q *domain.QuoteRequest) dto.QuoteRequestResponse {
	resp := dto.QuoteRequestResponse{
		ID:           q.ID,
		ComplaintID:  q.ComplaintID,
		Title:        q.Title,
		Description:  q.Description,
		Requirements: q.Requirements,
		Budget:       q.Budget,
		Priority:     q.Priority,
		DueDate:      q.DueDate,
		Status:       q.Status,
		CreatedBy:    q.CreatedBy,
		Vendors:      make([]dto.VendorResponse, 0, len(q.Vendors)),
		Responses:    make([]dto.QuoteResponseResponse, 0, len(q.Responses)),
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
	for _, v := range q.Vendors {
		resp.Vendors = append(resp.Vendors, dto.VendorResponse{VendorID: v.VendorID, SentAt: v.SentAt, HasResponded: v.HasResponded})
	}
	for i := range q.Responses {
		resp.Responses = append(resp.Responses, quoteResponseResponse(&q.Responses[i]))
	}
	return resp
}

func quoteResponseResponse(r *domain.QuoteResponse) dto.QuoteResponseResponse {
	return dto.QuoteResponseResponse{
		ID:               r.ID,
		QuoteRequestID:   r.QuoteRequestID,
		VendorID:         r.VendorID,
		Amount:           r.Amount,
		DeliveryTimeline: r.DeliveryTimeline,
		Proposal:         r.Proposal,
		Status:           r.Status,
		SubmittedAt:      r.SubmittedAt,
		ReviewedAt:       r.ReviewedAt,
		ReviewerID:       r.ReviewerID,
		ReviewNotes:      r.ReviewNotes,
	}
}

func scoreResponses(scores []quote.Score) []dto.QuoteScoreResponse {
	out := make([]dto.QuoteScoreResponse, 0, len(scores))
	for _, s := range scores {
		out = append(out, dto.QuoteScoreResponse{
			Rank:          s.Rank,
			ResponseID:    s.ResponseID,
			VendorID:      s.VendorID,
			Amount:        s.Amount,
			TimelineDays:  s.TimelineDays,
			CostScore:     s.RoundedCost(),
			TimelineScore: s.RoundedTimeline(),
			WeightedScore: s.RoundedWeighted(),
		})
	}
	return out
}

func notificationResponses(items []domain.Notification) []dto.NotificationResponse {
	out := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NotificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Type:      n.Type,
			RelatedID: n.RelatedID,
			Read:      n.Read,
			Metadata:  n.Metadata,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func inboxResponse(snapshot *service.InboxSnapshot, interval time.Duration, lastErr error) dto.InboxResponse {
	resp := dto.InboxResponse{
		Unread:              []dto.NotificationResponse{},
		Complaints:          []dto.ComplaintSummary{},
		PollIntervalSeconds: int(interval / time.Second),
	}
	if snapshot != nil {
		resp.Unread = notificationResponses(snapshot.Unread)
		resp.Complaints = complaintSummaries(snapshot.Complaints)
		taken := snapshot.TakenAt
		resp.TakenAt = &taken
	}
	if lastErr != nil {
		resp.LastError = apperrors.ToDomainError(lastErr).Message
	}
	return resp
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) bool {
	parsed, err := strconv.ParseBool(val)
	return err == nil && parsed
}
