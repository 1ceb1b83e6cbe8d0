package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

// ErrQueueFull is returned when the in-memory retry queue has no room.
var ErrQueueFull = errors.New("notification retry queue full")

// DefaultRedisKey is the list holding queued notifications.
const DefaultRedisKey = "complaint-workflow:notifications:retry"

// RetryQueue holds notifications whose first delivery failed.
type RetryQueue interface {
	Enqueue(ctx context.Context, n domain.Notification) error
	// Dequeue blocks until a notification is available or ctx is done.
	Dequeue(ctx context.Context) (domain.Notification, error)
}

type memoryQueue struct {
	items chan domain.Notification
}

// NewMemoryQueue creates a bounded in-process queue. Queued notifications are
// lost on restart.
func NewMemoryQueue(size int) RetryQueue {
	if size <= 0 {
		size = 1
	}
	return &memoryQueue{items: make(chan domain.Notification, size)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	select {
	case q.items <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context) (domain.Notification, error) {
	select {
	case n := <-q.items:
		return n, nil
	case <-ctx.Done():
		return domain.Notification{}, ctx.Err()
	}
}

type redisQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

// NewRedisQueue creates a queue backed by a Redis list. Producers LPUSH and
// the retry worker BRPOPs, so order is FIFO across restarts.
func NewRedisQueue(client *redis.Client, key string) RetryQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &redisQueue{client: client, key: key, pollTimeout: 5 * time.Second}
}

// queuedNotification is the JSON form stored in Redis.
type queuedNotification struct {
	ID          string                      `json:"id"`
	RecipientID string                      `json:"recipient_id"`
	Message     string                      `json:"message"`
	Type        domain.NotificationType     `json:"type"`
	RelatedID   string                      `json:"related_id"`
	Metadata    domain.NotificationMetadata `json:"metadata"`
	CreatedAt   time.Time                   `json:"created_at"`
}

func (q *redisQueue) Enqueue(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(queuedNotification{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Message:     n.Message,
		Type:        n.Type,
		RelatedID:   n.RelatedID,
		Metadata:    n.Metadata,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode queued notification: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context) (domain.Notification, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Notification{}, err
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return domain.Notification{}, err
		}
		if len(res) != 2 {
			continue
		}
		var item queuedNotification
		if err := json.Unmarshal([]byte(res[1]), &item); err != nil {
			return domain.Notification{}, fmt.Errorf("decode queued notification: %w", err)
		}
		return domain.Notification{
			ID:          item.ID,
			RecipientID: item.RecipientID,
			Message:     item.Message,
			Type:        item.Type,
			RelatedID:   item.RelatedID,
			Metadata:    item.Metadata,
			CreatedAt:   item.CreatedAt,
		}, nil
	}
}
