package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

func TestWebhookChannelPostsJSON(t *testing.T) {
	var got map[string]any
	var idempotencyKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotencyKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(nil, srv.URL)
	n := sample()
	n.ID = "n-42"
	require.NoError(t, ch.Send(context.Background(), n))
	assert.Equal(t, "n-42", idempotencyKey)
	assert.Equal(t, "emp-1", got["user_id"])
	assert.Equal(t, string(domain.NotificationForwardedToMidLevel), got["type"])
}

func TestWebhookChannelFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookChannel(nil, srv.URL).Send(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	assert.Error(t, NewWebhookChannel(nil, " ").Send(context.Background(), sample()))
}

func TestRedisQueueRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	key := "complaint-workflow:test:" + time.Now().Format("150405.000000")
	defer client.Del(context.Background(), key)
	q := NewRedisQueue(client, key)

	first, second := sample(), sample()
	first.ID, second.ID = "n-1", "n-2"
	first.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n-1", got.ID)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, first.Metadata, got.Metadata)

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "n-2", got.ID)
}
