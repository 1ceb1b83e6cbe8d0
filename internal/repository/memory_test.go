package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

func TestMemoryComplaintVersionCheck(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()

	c := &domain.Complaint{Title: "Leaking tap", Status: domain.StatusOpen, SubmitterID: "emp-1"}
	require.NoError(t, store.Complaints.Create(ctx, c))
	require.EqualValues(t, 1, c.Version)

	first, err := store.Complaints.GetByID(ctx, c.ID)
	require.NoError(t, err)
	second, err := store.Complaints.GetByID(ctx, c.ID)
	require.NoError(t, err)

	first.Status = domain.StatusInProgress
	require.NoError(t, store.Complaints.Update(ctx, first, 1))
	assert.EqualValues(t, 2, first.Version)

	second.Status = domain.StatusResolved
	err = store.Complaints.Update(ctx, second, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := store.Complaints.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)

	_, err = store.Complaints.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryListFilters(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"emp-1", "emp-2", "emp-1"} {
		require.NoError(t, store.Complaints.Create(ctx, &domain.Complaint{
			Title:       "Complaint",
			Status:      domain.StatusOpen,
			SubmitterID: owner,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	owner := "emp-1"
	list, err := store.Complaints.ListWithFilter(ctx, ComplaintFilter{SubmitterID: &owner})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))
}

func TestMemoryQuoteResponseRules(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()

	req := &domain.QuoteRequest{ComplaintID: "c-1", Title: "Chairs", Status: domain.QuoteRequestOpen}
	require.NoError(t, store.Quotes.CreateRequest(ctx, req))
	added, err := store.Quotes.AddVendor(ctx, req.ID, "v-1", time.Now())
	require.NoError(t, err)
	assert.True(t, added)
	added, err = store.Quotes.AddVendor(ctx, req.ID, "v-1", time.Now())
	require.NoError(t, err)
	assert.False(t, added)

	resp := &domain.QuoteResponse{QuoteRequestID: req.ID, VendorID: "v-1", Amount: 100, Status: domain.QuoteResponsePendingReview}
	require.NoError(t, store.Quotes.SaveResponse(ctx, resp))

	dup := &domain.QuoteResponse{QuoteRequestID: req.ID, VendorID: "v-1", Amount: 90, Status: domain.QuoteResponsePendingReview}
	assert.ErrorIs(t, store.Quotes.SaveResponse(ctx, dup), apperrors.ErrDuplicateResponse)

	resp.Status = domain.QuoteResponseNegotiating
	require.NoError(t, store.Quotes.ReviewResponse(ctx, resp))
	revision := &domain.QuoteResponse{QuoteRequestID: req.ID, VendorID: "v-1", Amount: 80, Status: domain.QuoteResponsePendingReview}
	require.NoError(t, store.Quotes.SaveResponse(ctx, revision))
	assert.Equal(t, resp.ID, revision.ID)

	hydrated, err := store.Quotes.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, hydrated.Responses, 1)
	assert.Equal(t, 80.0, hydrated.Responses[0].Amount)
	require.Len(t, hydrated.Vendors, 1)
	assert.True(t, hydrated.Vendors[0].HasResponded)
}

func TestMemoryNotificationsInbox(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()

	n := domain.Notification{ID: "n-1", RecipientID: "u-1", Message: "hello"}
	require.NoError(t, store.Notifications.Create(ctx, n))
	n.Message = "replaced"
	require.NoError(t, store.Notifications.Create(ctx, n))
	require.NoError(t, store.Notifications.Create(ctx, domain.Notification{ID: "n-2", RecipientID: "u-1"}))

	list, err := store.Notifications.List(ctx, "u-1", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, item := range list {
		if item.ID == "n-1" {
			assert.Equal(t, "hello", item.Message)
		}
	}

	require.NoError(t, store.Notifications.MarkRead(ctx, "u-1", "n-1"))
	assert.ErrorIs(t, store.Notifications.MarkRead(ctx, "u-2", "n-2"), apperrors.ErrNotFound)
	count, err := store.Notifications.UnreadCount(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	updated, err := store.Notifications.MarkAllRead(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
	require.NoError(t, store.Notifications.Delete(ctx, "u-1", "n-2"))
}

func TestMemoryMessagesSkipDuplicateSequence(t *testing.T) {
	store := NewMemoryStore().Store()
	ctx := context.Background()
	require.NoError(t, store.Messages.Append(ctx,
		domain.Message{ComplaintID: "c-1", Sequence: 1, Body: "second"},
		domain.Message{ComplaintID: "c-1", Sequence: 0, Body: "first"},
	))
	require.NoError(t, store.Messages.Append(ctx, domain.Message{ComplaintID: "c-1", Sequence: 0, Body: "again"}))

	msgs, err := store.Messages.ListByComplaint(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
}
