package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}
		api.mu.Lock()
		api.requests = append(api.requests, rec)
		api.mu.Unlock()
		api.handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return api, NewWithResty(resty.New().SetTimeout(2*time.Second), srv.URL, "service-token")
}

func (f *fakeAPI) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestComplaintUpdateSendsIfMatchAndBumpsVersion(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c-1", "version": 4})
	})
	repo := client.Store().Complaints

	c := &domain.Complaint{ID: "c-1", Title: "Broken chair", Status: domain.StatusForwarded, Version: 3}
	require.NoError(t, repo.Update(context.Background(), c, 3))

	req := api.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/complaints/c-1", req.Path)
	assert.Equal(t, "3", req.Header.Get("If-Match"))
	assert.Equal(t, "Bearer service-token", req.Header.Get("Authorization"))
	assert.Equal(t, "forwarded", req.Body["status"])
	assert.EqualValues(t, 4, c.Version)
}

func TestComplaintUpdateConflictStatuses(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusPreconditionFailed} {
		_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, status, map[string]string{"detail": "version mismatch"})
		})
		err := client.Store().Complaints.Update(context.Background(), &domain.Complaint{ID: "c-1"}, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrConflict, "status %d", status)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, apperrors.ErrNotFound},
		{http.StatusBadGateway, apperrors.ErrUpstreamUnavailable},
		{http.StatusServiceUnavailable, apperrors.ErrUpstreamUnavailable},
		{http.StatusForbidden, apperrors.ErrForbidden},
	}
	for _, tc := range cases {
		_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := client.Store().Complaints.GetByID(context.Background(), "c-9")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestTransportFailureIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewWithResty(resty.New().SetTimeout(time.Second), url, "")
	_, err := client.Store().Complaints.GetByID(context.Background(), "c-1")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestSessionTokenOverridesServiceToken(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "c-1", "status": "open", "version": 1})
	})
	ctx := domain.WithSession(context.Background(), domain.Session{ActorID: "u-1", Role: domain.RoleEmployee, Token: "user-token"})
	c, err := client.Store().Complaints.GetByID(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, c.Status)
	assert.Equal(t, domain.PriorityMedium, c.Priority)
	assert.Equal(t, "Bearer user-token", api.last().Header.Get("Authorization"))
}

func TestResolveUsesDedicatedEndpoint(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := &domain.Complaint{ID: "c-2", Status: domain.StatusResolved, Version: 7}
	require.NoError(t, client.Store().Complaints.Resolve(context.Background(), c, 7))

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/complaints/c-2/resolve", req.Path)
	assert.EqualValues(t, 8, c.Version)
}

func TestListWithFilterQuery(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "a", "status": "open"}, {"id": "b", "status": "closed", "rejection_reason": "dup", "rejected_by": "manager"}})
	})
	submitter := "u-1"
	list, err := client.Store().Complaints.ListWithFilter(context.Background(), repository.ComplaintFilter{
		SubmitterID: &submitter,
		Statuses:    []domain.ComplaintStatus{domain.StatusOpen, domain.StatusClosed},
		Limit:       5,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[1].Rejection)
	assert.Equal(t, domain.RoleManager, list[1].Rejection.RejectedBy)
	assert.Contains(t, api.last().Query, "submitter_id=u-1")
	assert.Contains(t, api.last().Query, "status=open%2Cclosed")
}

func TestNotificationChannelsUseDistinctEndpoints(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	n := domain.Notification{ID: "n-1", RecipientID: "u-1", Message: "hi", Type: domain.NotificationMessage}

	require.NoError(t, client.PrimaryChannel().Send(context.Background(), n))
	assert.Equal(t, "/notifications/create", api.last().Path)
	assert.Equal(t, "n-1", api.last().Header.Get("Idempotency-Key"))

	require.NoError(t, client.FallbackChannel().Send(context.Background(), n))
	assert.Equal(t, "/notifications", api.last().Path)
	assert.Equal(t, "u-1", api.last().Body["user_id"])
}

func TestNotificationInbox(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "n-1", "user_id": "u-1"}, {"id": "n-2", "user_id": "u-1"}})
		case "/notifications/read-all":
			writeJSON(w, http.StatusOK, map[string]any{"updated": 2})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	repo := client.Store().Notifications
	ctx := context.Background()

	count, err := repo.UnreadCount(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Contains(t, api.last().Query, "unread_only=true")

	list, err := repo.List(ctx, "u-1", false, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	updated, err := repo.MarkAllRead(ctx, "u-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	require.NoError(t, repo.MarkRead(ctx, "u-1", "n-1"))
	assert.Equal(t, "/notifications/n-1/read", api.last().Path)
	require.NoError(t, repo.Delete(ctx, "u-1", "n-1"))
	assert.Equal(t, http.MethodDelete, api.last().Method)
}

func TestSaveResponseConflictIsDuplicate(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	err := client.Store().Quotes.SaveResponse(context.Background(), &domain.QuoteResponse{QuoteRequestID: "q-1", VendorID: "v-1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateResponse)
}

func TestAddVendorAlreadyInvited(t *testing.T) {
	_, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	added, err := client.Store().Quotes.AddVendor(context.Background(), "q-1", "v-1", time.Now())
	require.NoError(t, err)
	assert.False(t, added)
}

func TestListQuoteRequestsByComplaint(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"has_quote_requests": true,
			"quote_requests": []map[string]any{{
				"id":        "q-1",
				"status":    "open",
				"vendors":   []map[string]any{{"vendor_id": "v-1"}},
				"responses": []map[string]any{{"id": "r-1", "vendor_id": "v-1", "quote_amount": 1200}},
			}},
		})
	})
	list, err := client.Store().Quotes.ListByComplaint(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "/complaints/c-1/has-quote-requests", api.last().Path)
	assert.True(t, list[0].HasVendor("v-1"))
	resp, ok := list[0].ResponseFrom("v-1")
	require.True(t, ok)
	assert.Equal(t, 1200.0, resp.Amount)
}

func TestUsersByRole(t *testing.T) {
	api, client := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "u-1", "name": "Omar", "role": "ats"}})
	})
	users, err := client.Store().Users.ListByRole(context.Background(), domain.RoleATS)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleATS, users[0].Role)
	assert.Equal(t, "/users/by-role/ats", api.last().Path)
	assert.Nil(t, client.Store().Messages)
}
