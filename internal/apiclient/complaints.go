package apiclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/repository"
)

type complaintRepo struct {
	c *Client
}

func (r *complaintRepo) Create(ctx context.Context, complaint *domain.Complaint) error {
	var out complaintPayload
	req := r.c.request(ctx).
		SetBody(toComplaintPayload(complaint)).
		SetResult(&out)
	if _, err := call(req, http.MethodPost, "/complaints/", "complaint"); err != nil {
		return err
	}
	created := out.toDomain()
	complaint.ID = created.ID
	complaint.CreatedAt = created.CreatedAt
	complaint.UpdatedAt = created.UpdatedAt
	complaint.Version = created.Version
	if complaint.Version == 0 {
		complaint.Version = 1
	}
	return nil
}

func (r *complaintRepo) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	var out complaintPayload
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/complaints/{id}", "complaint"); err != nil {
		return nil, err
	}
	c := out.toDomain()
	return &c, nil
}

func (r *complaintRepo) Update(ctx context.Context, complaint *domain.Complaint, expectedVersion int64) error {
	return r.write(ctx, http.MethodPatch, "/complaints/{id}", complaint, expectedVersion)
}

func (r *complaintRepo) Resolve(ctx context.Context, complaint *domain.Complaint, expectedVersion int64) error {
	return r.write(ctx, http.MethodPost, "/complaints/{id}/resolve", complaint, expectedVersion)
}

func (r *complaintRepo) write(ctx context.Context, method, path string, complaint *domain.Complaint, expectedVersion int64) error {
	var out complaintPayload
	req := r.c.request(ctx).
		SetPathParam("id", complaint.ID).
		SetHeader("If-Match", strconv.FormatInt(expectedVersion, 10)).
		SetBody(toComplaintPayload(complaint)).
		SetResult(&out)
	if _, err := call(req, method, path, "complaint"); err != nil {
		return err
	}
	complaint.Version = out.Version
	if complaint.Version <= expectedVersion {
		complaint.Version = expectedVersion + 1
	}
	if !out.UpdatedAt.IsZero() {
		complaint.UpdatedAt = out.UpdatedAt
	}
	return nil
}

func (r *complaintRepo) ListWithFilter(ctx context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	var out []complaintPayload
	req := r.c.request(ctx).SetResult(&out)
	if filter.SubmitterID != nil {
		req.SetQueryParam("submitter_id", *filter.SubmitterID)
	}
	if filter.AssigneeID != nil {
		req.SetQueryParam("assignee_id", *filter.AssigneeID)
	}
	if len(filter.Statuses) > 0 {
		values := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			values = append(values, string(s))
		}
		req.SetQueryParam("status", strings.Join(values, ","))
	}
	if len(filter.Priorities) > 0 {
		values := make([]string, 0, len(filter.Priorities))
		for _, p := range filter.Priorities {
			values = append(values, string(p))
		}
		req.SetQueryParam("priority", strings.Join(values, ","))
	}
	if filter.SearchTerm != nil && *filter.SearchTerm != "" {
		req.SetQueryParam("search", *filter.SearchTerm)
	}
	if filter.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(filter.Offset))
	}
	if _, err := call(req, http.MethodGet, "/complaints", "complaint"); err != nil {
		return nil, err
	}
	complaints := make([]domain.Complaint, 0, len(out))
	for _, p := range out {
		complaints = append(complaints, p.toDomain())
	}
	return complaints, nil
}
