package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

type quoteRepo struct {
	c *Client
}

func (r *quoteRepo) CreateRequest(ctx context.Context, q *domain.QuoteRequest) error {
	var out quoteRequestPayload
	req := r.c.request(ctx).
		SetBody(toQuoteRequestPayload(q)).
		SetResult(&out)
	if _, err := call(req, http.MethodPost, "/quote-requests/", "quote request"); err != nil {
		return err
	}
	created := out.toDomain()
	q.ID = created.ID
	q.CreatedAt = created.CreatedAt
	q.UpdatedAt = created.UpdatedAt
	if len(created.Vendors) > 0 {
		q.Vendors = created.Vendors
	}
	return nil
}

func (r *quoteRepo) GetRequest(ctx context.Context, id string) (*domain.QuoteRequest, error) {
	var out quoteRequestPayload
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/quote-requests/{id}", "quote request"); err != nil {
		return nil, err
	}
	q := out.toDomain()
	return &q, nil
}

func (r *quoteRepo) ListByComplaint(ctx context.Context, complaintID string) ([]domain.QuoteRequest, error) {
	var out struct {
		HasQuoteRequests bool                  `json:"has_quote_requests"`
		QuoteRequests    []quoteRequestPayload `json:"quote_requests"`
	}
	req := r.c.request(ctx).
		SetPathParam("id", complaintID).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/complaints/{id}/has-quote-requests", "complaint"); err != nil {
		return nil, err
	}
	list := make([]domain.QuoteRequest, 0, len(out.QuoteRequests))
	for _, p := range out.QuoteRequests {
		list = append(list, p.toDomain())
	}
	return list, nil
}

func (r *quoteRepo) UpdateStatus(ctx context.Context, id string, status domain.QuoteRequestStatus) error {
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetBody(map[string]string{"status": string(status)})
	_, err := call(req, http.MethodPut, "/quote-requests/{id}", "quote request")
	return err
}

func (r *quoteRepo) AddVendor(ctx context.Context, requestID, vendorID string, sentAt time.Time) (bool, error) {
	req := r.c.request(ctx).
		SetPathParam("id", requestID).
		SetBody(vendorPayload{VendorID: vendorID, SentAt: sentAt})
	_, err := call(req, http.MethodPost, "/quote-requests/{id}/vendors", "quote request")
	if errors.Is(err, apperrors.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *quoteRepo) SaveResponse(ctx context.Context, resp *domain.QuoteResponse) error {
	var out quoteResponsePayload
	req := r.c.request(ctx).
		SetPathParam("id", resp.QuoteRequestID).
		SetBody(toQuoteResponsePayload(resp)).
		SetResult(&out)
	_, err := call(req, http.MethodPost, "/quotes/{id}/respond", "quote request")
	if errors.Is(err, apperrors.ErrConflict) {
		return apperrors.NewDuplicateResponse("vendor already responded to this quote request", map[string]any{
			"quoteRequestId": resp.QuoteRequestID,
			"vendorId":       resp.VendorID,
		})
	}
	if err != nil {
		return err
	}
	if out.ID != "" {
		resp.ID = out.ID
	}
	if !out.SubmittedAt.IsZero() {
		resp.SubmittedAt = out.SubmittedAt
	}
	return nil
}

func (r *quoteRepo) GetResponse(ctx context.Context, id string) (*domain.QuoteResponse, error) {
	var out quoteResponsePayload
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/quote-responses/{id}", "quote response"); err != nil {
		return nil, err
	}
	resp := out.toDomain()
	return &resp, nil
}

func (r *quoteRepo) ReviewResponse(ctx context.Context, resp *domain.QuoteResponse) error {
	body := map[string]any{
		"status":       resp.Status,
		"review_notes": resp.ReviewNotes,
		"reviewed_by":  resp.ReviewerID,
		"reviewed_at":  resp.ReviewedAt,
	}
	req := r.c.request(ctx).
		SetPathParam("id", resp.ID).
		SetBody(body)
	_, err := call(req, http.MethodPut, "/quote-responses/{id}/review", "quote response")
	return err
}
