package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// QuoteRepository persists quote requests, vendor invitations and responses.
type QuoteRepository interface {
	CreateRequest(ctx context.Context, req *domain.QuoteRequest) error
	GetRequest(ctx context.Context, id string) (*domain.QuoteRequest, error)
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.QuoteRequest, error)
	UpdateStatus(ctx context.Context, id string, status domain.QuoteRequestStatus) error
	// AddVendor invites vendorID; it reports false when already invited.
	AddVendor(ctx context.Context, requestID, vendorID string, sentAt time.Time) (bool, error)
	// SaveResponse inserts a vendor's offer, or replaces it when the stored
	// one is negotiating. Any other existing offer is a DuplicateResponse.
	SaveResponse(ctx context.Context, resp *domain.QuoteResponse) error
	GetResponse(ctx context.Context, id string) (*domain.QuoteResponse, error)
	ReviewResponse(ctx context.Context, resp *domain.QuoteResponse) error
}

type quoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository instantiates repository.
func NewQuoteRepository(pool *pgxpool.Pool) QuoteRepository {
	return &quoteRepository{pool: pool}
}

func (r *quoteRepository) CreateRequest(ctx context.Context, req *domain.QuoteRequest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertRequest = `
        INSERT INTO quote_requests (complaint_id, title, description, requirements, budget, priority, due_date, status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertRequest,
		req.ComplaintID,
		req.Title,
		req.Description,
		req.Requirements,
		req.Budget,
		req.Priority,
		req.DueDate,
		req.Status,
		req.CreatedBy,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt); err != nil {
		return err
	}

	const insertVendor = `
        INSERT INTO quote_request_vendors (quote_request_id, vendor_id, sent_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (quote_request_id, vendor_id) DO NOTHING
        RETURNING id`
	for i := range req.Vendors {
		v := &req.Vendors[i]
		if err := tx.QueryRow(ctx, insertVendor, req.ID, v.VendorID, v.SentAt).Scan(&v.ID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *quoteRepository) GetRequest(ctx context.Context, id string) (*domain.QuoteRequest, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	const query = `
        SELECT id, complaint_id, title, description, requirements, budget, priority, due_date, status, created_by, created_at, updated_at
        FROM quote_requests WHERE id=$1`
	req, err := scanQuoteRequest(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *quoteRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.QuoteRequest, error) {
	if !validID(complaintID) {
		return []domain.QuoteRequest{}, nil
	}
	const query = `
        SELECT id, complaint_id, title, description, requirements, budget, priority, due_date, status, created_by, created_at, updated_at
        FROM quote_requests WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	result := []domain.QuoteRequest{}
	for rows.Next() {
		req, err := scanQuoteRequest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, *req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if err := r.hydrate(ctx, &result[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *quoteRepository) UpdateStatus(ctx context.Context, id string, status domain.QuoteRequestStatus) error {
	if !validID(id) {
		return apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE quote_requests SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	return nil
}

func (r *quoteRepository) AddVendor(ctx context.Context, requestID, vendorID string, sentAt time.Time) (bool, error) {
	if !validID(requestID) {
		return false, apperrors.NewNotFound("quote request", map[string]any{"id": requestID})
	}
	cmd, err := r.pool.Exec(ctx, `
        INSERT INTO quote_request_vendors (quote_request_id, vendor_id, sent_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (quote_request_id, vendor_id) DO NOTHING`, requestID, vendorID, sentAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *quoteRepository) SaveResponse(ctx context.Context, resp *domain.QuoteResponse) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const upsert = `
        INSERT INTO quote_responses (quote_request_id, vendor_id, amount, delivery_timeline, proposal, status, submitted_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (quote_request_id, vendor_id) DO UPDATE
            SET amount=EXCLUDED.amount, delivery_timeline=EXCLUDED.delivery_timeline, proposal=EXCLUDED.proposal,
                status=EXCLUDED.status, submitted_at=EXCLUDED.submitted_at,
                reviewed_at=NULL, reviewer_id=NULL, review_notes=''
            WHERE quote_responses.status = 'negotiating'
        RETURNING id`
	err = tx.QueryRow(ctx, upsert,
		resp.QuoteRequestID,
		resp.VendorID,
		resp.Amount,
		resp.DeliveryTimeline,
		resp.Proposal,
		resp.Status,
		resp.SubmittedAt,
	).Scan(&resp.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewDuplicateResponse("vendor has already responded to this quote request", map[string]any{
			"quoteRequestId": resp.QuoteRequestID,
			"vendorId":       resp.VendorID,
		})
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE quote_request_vendors SET has_responded=TRUE WHERE quote_request_id=$1 AND vendor_id=$2`,
		resp.QuoteRequestID, resp.VendorID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *quoteRepository) GetResponse(ctx context.Context, id string) (*domain.QuoteResponse, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("quote response", map[string]any{"id": id})
	}
	const query = `
        SELECT id, quote_request_id, vendor_id, amount, delivery_timeline, proposal, status, submitted_at, reviewed_at, reviewer_id, review_notes
        FROM quote_responses WHERE id=$1`
	resp, err := scanQuoteResponse(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("quote response", map[string]any{"id": id})
	}
	return resp, err
}

func (r *quoteRepository) ReviewResponse(ctx context.Context, resp *domain.QuoteResponse) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE quote_responses SET status=$1, reviewed_at=$2, reviewer_id=$3, review_notes=$4
        WHERE id=$5`, resp.Status, resp.ReviewedAt, resp.ReviewerID, resp.ReviewNotes, resp.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("quote response", map[string]any{"id": resp.ID})
	}
	return nil
}

func (r *quoteRepository) hydrate(ctx context.Context, req *domain.QuoteRequest) error {
	vendorRows, err := r.pool.Query(ctx, `
        SELECT id, vendor_id, sent_at, has_responded
        FROM quote_request_vendors WHERE quote_request_id=$1 ORDER BY sent_at ASC`, req.ID)
	if err != nil {
		return err
	}
	req.Vendors = []domain.VendorSelection{}
	for vendorRows.Next() {
		var v domain.VendorSelection
		if err := vendorRows.Scan(&v.ID, &v.VendorID, &v.SentAt, &v.HasResponded); err != nil {
			vendorRows.Close()
			return err
		}
		req.Vendors = append(req.Vendors, v)
	}
	vendorRows.Close()
	if err := vendorRows.Err(); err != nil {
		return err
	}

	respRows, err := r.pool.Query(ctx, `
        SELECT id, quote_request_id, vendor_id, amount, delivery_timeline, proposal, status, submitted_at, reviewed_at, reviewer_id, review_notes
        FROM quote_responses WHERE quote_request_id=$1 ORDER BY submitted_at ASC`, req.ID)
	if err != nil {
		return err
	}
	defer respRows.Close()
	req.Responses = []domain.QuoteResponse{}
	for respRows.Next() {
		resp, err := scanQuoteResponse(respRows)
		if err != nil {
			return err
		}
		req.Responses = append(req.Responses, *resp)
	}
	return respRows.Err()
}

func scanQuoteRequest(row pgx.Row) (*domain.QuoteRequest, error) {
	var req domain.QuoteRequest
	if err := row.Scan(
		&req.ID,
		&req.ComplaintID,
		&req.Title,
		&req.Description,
		&req.Requirements,
		&req.Budget,
		&req.Priority,
		&req.DueDate,
		&req.Status,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func scanQuoteResponse(row pgx.Row) (*domain.QuoteResponse, error) {
	var (
		resp  domain.QuoteResponse
		notes *string
	)
	if err := row.Scan(
		&resp.ID,
		&resp.QuoteRequestID,
		&resp.VendorID,
		&resp.Amount,
		&resp.DeliveryTimeline,
		&resp.Proposal,
		&resp.Status,
		&resp.SubmittedAt,
		&resp.ReviewedAt,
		&resp.ReviewerID,
		&notes,
	); err != nil {
		return nil, err
	}
	if notes != nil {
		resp.ReviewNotes = *notes
	}
	return &resp, nil
}
