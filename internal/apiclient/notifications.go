package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/notify"
)

type notificationRepo struct {
	c *Client
}

// Create posts to the primary creation endpoint.
func (r *notificationRepo) Create(ctx context.Context, n domain.Notification) error {
	return r.c.postNotification(ctx, "/notifications/create", n)
}

func (r *notificationRepo) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	var out []notificationPayload
	req := r.c.request(ctx).
		SetQueryParam("user_id", recipientID).
		SetQueryParam("unread_only", strconv.FormatBool(unreadOnly)).
		SetResult(&out)
	if _, err := call(req, http.MethodGet, "/notifications", "notification"); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	list := make([]domain.Notification, 0, len(out))
	for _, p := range out {
		list = append(list, p.toDomain())
	}
	return list, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, recipientID, id string) error {
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetQueryParam("user_id", recipientID)
	_, err := call(req, http.MethodPut, "/notifications/{id}/read", "notification")
	return err
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	req := r.c.request(ctx).
		SetQueryParam("user_id", recipientID).
		SetResult(&out)
	if _, err := call(req, http.MethodPut, "/notifications/read-all", "notification"); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

func (r *notificationRepo) Delete(ctx context.Context, recipientID, id string) error {
	req := r.c.request(ctx).
		SetPathParam("id", id).
		SetQueryParam("user_id", recipientID)
	_, err := call(req, http.MethodDelete, "/notifications/{id}", "notification")
	return err
}

func (r *notificationRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	unread, err := r.List(ctx, recipientID, true, 0)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// PrimaryChannel delivers through POST /notifications/create.
func (c *Client) PrimaryChannel() notify.Channel {
	return notify.ChannelFunc(func(ctx context.Context, n domain.Notification) error {
		return c.postNotification(ctx, "/notifications/create", n)
	})
}

// FallbackChannel delivers through the older POST /notifications endpoint.
func (c *Client) FallbackChannel() notify.Channel {
	return notify.ChannelFunc(func(ctx context.Context, n domain.Notification) error {
		return c.postNotification(ctx, "/notifications", n)
	})
}

func (c *Client) postNotification(ctx context.Context, path string, n domain.Notification) error {
	req := c.request(ctx).
		SetHeader("Idempotency-Key", n.ID).
		SetBody(toNotificationPayload(n))
	_, err := call(req, http.MethodPost, path, "notification")
	return err
}
