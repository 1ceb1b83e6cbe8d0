// Package apiclient implements the repository interfaces against the external
// complaint API. Writes are never retried here; callers decide.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/complaint-workflow/internal/config"
	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// Client is a thin resty wrapper bound to the API base URL.
type Client struct {
	http  *resty.Client
	token string
}

// New builds a client from cfg.
func New(cfg config.APIConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewWithResty(resty.New().SetTimeout(timeout), cfg.BaseURL, cfg.Token)
}

// NewWithResty wraps an existing resty client. Tests use it to point at an
// httptest server.
func NewWithResty(rc *resty.Client, baseURL, token string) *Client {
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &Client{http: rc, token: token}
}

// Store returns every repository backed by the API. The API keeps the
// conversation only in the notes blob, so Messages is nil.
func (c *Client) Store() repository.Store {
	return repository.Store{
		Complaints:    &complaintRepo{c: c},
		Notifications: &notificationRepo{c: c},
		Quotes:        &quoteRepo{c: c},
		Users:         &userRepo{c: c},
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if s, ok := domain.SessionFromContext(ctx); ok && s.Token != "" {
		req.SetAuthToken(s.Token)
	} else if c.token != "" {
		req.SetAuthToken(c.token)
	}
	return req
}

// call runs req and maps failures onto domain errors. resource names the
// entity for NotFound messages.
func call(req *resty.Request, method, path, resource string) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	if err := statusError(resp, resource); err != nil {
		return resp, err
	}
	return resp, nil
}

func statusError(resp *resty.Response, resource string) error {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}
	details := map[string]any{"status": status}
	if body := strings.TrimSpace(resp.String()); body != "" {
		details["upstream"] = truncate(body, 512)
	}
	switch {
	case status == http.StatusNotFound:
		return apperrors.NewNotFound(resource, details)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return apperrors.NewConflict(resource+" was modified concurrently; re-fetch and retry", details)
	case status == http.StatusUnauthorized:
		return apperrors.NewUnauthorized("upstream rejected credentials")
	case status == http.StatusForbidden:
		return apperrors.NewForbidden("upstream refused the operation")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperrors.NewValidationError("upstream rejected the request", details)
	case status >= 500:
		return apperrors.NewUpstreamUnavailable(fmt.Errorf("upstream status %d", status))
	default:
		return apperrors.NewInternalError(fmt.Errorf("unexpected upstream status %d", status))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
