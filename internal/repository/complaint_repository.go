package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	SubmitterID *string
	AssigneeID  *string
	Statuses    []domain.ComplaintStatus
	Priorities  []domain.Priority
	SearchTerm  *string
	Limit       int
	Offset      int
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	// Update writes complaint only if the stored version equals
	// expectedVersion, then bumps complaint.Version. A mismatch is a Conflict.
	Update(ctx context.Context, complaint *domain.Complaint, expectedVersion int64) error
	// Resolve is Update for the resolve transition. Backends may resolve and
	// notify in one call.
	Resolve(ctx context.Context, complaint *domain.Complaint, expectedVersion int64) error
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, title, description, priority, status, submitter_id, submitter_name, assignee_id,
               notes, procurement_justification, rejection_reason, rejected_by, rejected_at,
               version, created_at, updated_at, resolved_at`

func (r *complaintRepository) Create(ctx context.Context, c *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (title, description, priority, status, submitter_id, submitter_name, assignee_id, notes, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,1)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		c.Title,
		c.Description,
		c.Priority,
		c.Status,
		c.SubmitterID,
		c.SubmitterName,
		c.AssigneeID,
		c.Notes,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	c, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	return c, err
}

func (r *complaintRepository) Update(ctx context.Context, c *domain.Complaint, expectedVersion int64) error {
	const query = `
        UPDATE complaints SET title=$1, description=$2, priority=$3, status=$4, assignee_id=$5, notes=$6,
            procurement_justification=$7, rejection_reason=$8, rejected_by=$9, rejected_at=$10,
            resolved_at=$11, version=version+1, updated_at=NOW()
        WHERE id=$12 AND version=$13
        RETURNING version, updated_at`
	var reason, rejectedBy *string
	var rejectedAt *time.Time
	if c.Rejection != nil {
		role := string(c.Rejection.RejectedBy)
		reason, rejectedBy, rejectedAt = &c.Rejection.Reason, &role, &c.Rejection.RejectedAt
	}
	err := r.pool.QueryRow(ctx, query,
		c.Title,
		c.Description,
		c.Priority,
		c.Status,
		c.AssigneeID,
		c.Notes,
		c.ProcurementJustification,
		reason,
		rejectedBy,
		rejectedAt,
		c.ResolvedAt,
		c.ID,
		expectedVersion,
	).Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, c.ID); getErr != nil {
			return getErr
		}
		return apperrors.NewConflict("complaint was modified by someone else, reload and retry", map[string]any{
			"id":              c.ID,
			"expectedVersion": expectedVersion,
		})
	}
	return err
}

func (r *complaintRepository) Resolve(ctx context.Context, c *domain.Complaint, expectedVersion int64) error {
	return r.Update(ctx, c, expectedVersion)
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := pagination(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var (
		c          domain.Complaint
		reason     *string
		rejectedBy *string
		rejectedAt *time.Time
	)
	if err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Priority,
		&c.Status,
		&c.SubmitterID,
		&c.SubmitterName,
		&c.AssigneeID,
		&c.Notes,
		&c.ProcurementJustification,
		&reason,
		&rejectedBy,
		&rejectedAt,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if reason != nil {
		c.Rejection = &domain.Rejection{Reason: *reason}
		if rejectedBy != nil {
			c.Rejection.RejectedBy = domain.Role(*rejectedBy)
		}
		if rejectedAt != nil {
			c.Rejection.RejectedAt = *rejectedAt
		}
	}
	return &c, nil
}

func pagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
