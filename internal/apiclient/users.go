package apiclient

import (
	"context"
	"net/http"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

type userRepo struct {
	c *Client
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out userPayload
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/users/{id}", "user"); err != nil {
		return nil, err
	}
	u := out.toDomain()
	return &u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []userPayload
	req := r.c.request(ctx).
		SetPathParam("role", string(role)).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/users/by-role/{role}", "user"); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(out))
	for _, p := range out {
		users = append(users, p.toDomain())
	}
	return users, nil
}
