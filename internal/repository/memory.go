package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// MemoryStore keeps every entity in process memory. It serves local
// development and tests and follows the same conflict rules as Postgres.
type MemoryStore struct {
	mu            sync.RWMutex
	complaints    map[string]domain.Complaint
	messages      map[string][]domain.Message
	notifications map[string]domain.Notification
	requests      map[string]domain.QuoteRequest
	responses     map[string]domain.QuoteResponse
	users         map[string]domain.User
	now           func() time.Time
}

// NewMemoryStore returns an empty store seeded with users.
func NewMemoryStore(users ...domain.User) *MemoryStore {
	m := &MemoryStore{
		complaints:    make(map[string]domain.Complaint),
		messages:      make(map[string][]domain.Message),
		notifications: make(map[string]domain.Notification),
		requests:      make(map[string]domain.QuoteRequest),
		responses:     make(map[string]domain.QuoteResponse),
		users:         make(map[string]domain.User),
		now:           time.Now,
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Store exposes m through the repository interfaces.
func (m *MemoryStore) Store() Store {
	return Store{
		Complaints:    memoryComplaints{m},
		Messages:      memoryMessages{m},
		Notifications: memoryNotifications{m},
		Quotes:        memoryQuotes{m},
		Users:         memoryUsers{m},
	}
}

type memoryComplaints struct{ m *MemoryStore }

func (r memoryComplaints) Create(_ context.Context, c *domain.Complaint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	c.Version = 1
	r.m.complaints[c.ID] = *c.Clone()
	return nil
}

func (r memoryComplaints) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.complaints[id]
	if !ok {
		return nil, apperrors.NewNotFound("complaint", map[string]any{"id": id})
	}
	return c.Clone(), nil
}

func (r memoryComplaints) Update(_ context.Context, c *domain.Complaint, expectedVersion int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.complaints[c.ID]
	if !ok {
		return apperrors.NewNotFound("complaint", map[string]any{"id": c.ID})
	}
	if stored.Version != expectedVersion {
		return apperrors.NewConflict("complaint was modified concurrently; re-fetch and retry", map[string]any{
			"id":              c.ID,
			"expectedVersion": expectedVersion,
			"currentVersion":  stored.Version,
		})
	}
	c.Version = expectedVersion + 1
	c.CreatedAt = stored.CreatedAt
	r.m.complaints[c.ID] = *c.Clone()
	return nil
}

func (r memoryComplaints) Resolve(ctx context.Context, c *domain.Complaint, expectedVersion int64) error {
	return r.Update(ctx, c, expectedVersion)
}

func (r memoryComplaints) ListWithFilter(_ context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.Complaint, 0)
	for _, c := range r.m.complaints {
		if filter.SubmitterID != nil && c.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.AssigneeID != nil && (c.AssigneeID == nil || *c.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(filter.Statuses, c.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !priorityIn(filter.Priorities, c.Priority) {
			continue
		}
		if filter.SearchTerm != nil && *filter.SearchTerm != "" {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(c.Title), term) && !strings.Contains(strings.ToLower(c.Description), term) {
				continue
			}
		}
		out = append(out, *c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit, offset := pagination(filter.Limit, filter.Offset)
	if offset >= len(out) {
		return []domain.Complaint{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryMessages struct{ m *MemoryStore }

func (r memoryMessages) Append(_ context.Context, messages ...domain.Message) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, msg := range messages {
		existing := r.m.messages[msg.ComplaintID]
		duplicate := false
		for _, e := range existing {
			if e.Sequence == msg.Sequence {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		existing = append(existing, msg)
		sort.Slice(existing, func(i, j int) bool { return existing[i].Sequence < existing[j].Sequence })
		r.m.messages[msg.ComplaintID] = existing
	}
	return nil
}

func (r memoryMessages) ListByComplaint(_ context.Context, complaintID string) ([]domain.Message, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return append([]domain.Message{}, r.m.messages[complaintID]...), nil
}

func (r memoryMessages) CountByComplaint(_ context.Context, complaintID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return len(r.m.messages[complaintID]), nil
}

type memoryNotifications struct{ m *MemoryStore }

func (r memoryNotifications) Create(_ context.Context, n domain.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := r.m.notifications[n.ID]; exists {
		return nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.m.now()
	}
	r.m.notifications[n.ID] = n
	return nil
}

func (r memoryNotifications) List(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.Notification, 0)
	for _, n := range r.m.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memoryNotifications) MarkRead(_ context.Context, recipientID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	n.Read = true
	r.m.notifications[id] = n
	return nil
}

func (r memoryNotifications) MarkAllRead(_ context.Context, recipientID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var updated int64
	for id, n := range r.m.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			r.m.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func (r memoryNotifications) Delete(_ context.Context, recipientID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok || n.RecipientID != recipientID {
		return apperrors.NewNotFound("notification", map[string]any{"id": id})
	}
	delete(r.m.notifications, id)
	return nil
}

func (r memoryNotifications) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	list, err := r.List(ctx, recipientID, true, 0)
	return len(list), err
}

type memoryQuotes struct{ m *MemoryStore }

func (r memoryQuotes) CreateRequest(_ context.Context, req *domain.QuoteRequest) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := r.m.now()
	req.CreatedAt, req.UpdatedAt = now, now
	for i := range req.Vendors {
		if req.Vendors[i].ID == "" {
			req.Vendors[i].ID = uuid.NewString()
		}
	}
	stored := *req
	stored.Vendors = append([]domain.VendorSelection{}, req.Vendors...)
	stored.Responses = nil
	r.m.requests[req.ID] = stored
	return nil
}

func (r memoryQuotes) GetRequest(_ context.Context, id string) (*domain.QuoteRequest, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	req, ok := r.m.requests[id]
	if !ok {
		return nil, apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	hydrated := r.m.hydrate(req)
	return &hydrated, nil
}

func (r memoryQuotes) ListByComplaint(_ context.Context, complaintID string) ([]domain.QuoteRequest, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.QuoteRequest, 0)
	for _, req := range r.m.requests {
		if req.ComplaintID == complaintID {
			out = append(out, r.m.hydrate(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryQuotes) UpdateStatus(_ context.Context, id string, status domain.QuoteRequestStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[id]
	if !ok {
		return apperrors.NewNotFound("quote request", map[string]any{"id": id})
	}
	req.Status = status
	req.UpdatedAt = r.m.now()
	r.m.requests[id] = req
	return nil
}

func (r memoryQuotes) AddVendor(_ context.Context, requestID, vendorID string, sentAt time.Time) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	req, ok := r.m.requests[requestID]
	if !ok {
		return false, apperrors.NewNotFound("quote request", map[string]any{"id": requestID})
	}
	if req.HasVendor(vendorID) {
		return false, nil
	}
	req.Vendors = append(append([]domain.VendorSelection{}, req.Vendors...), domain.VendorSelection{
		ID:       uuid.NewString(),
		VendorID: vendorID,
		SentAt:   sentAt,
	})
	r.m.requests[requestID] = req
	return true, nil
}

func (r memoryQuotes) SaveResponse(_ context.Context, resp *domain.QuoteResponse) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, existing := range r.m.responses {
		if existing.QuoteRequestID != resp.QuoteRequestID || existing.VendorID != resp.VendorID {
			continue
		}
		if existing.Status != domain.QuoteResponseNegotiating {
			return apperrors.NewDuplicateResponse("vendor already responded to this quote request", map[string]any{
				"quoteRequestId": resp.QuoteRequestID,
				"vendorId":       resp.VendorID,
			})
		}
		resp.ID = id
		r.m.responses[id] = *resp
		return nil
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	r.m.responses[resp.ID] = *resp
	if req, ok := r.m.requests[resp.QuoteRequestID]; ok {
		vendors := append([]domain.VendorSelection{}, req.Vendors...)
		for i := range vendors {
			if vendors[i].VendorID == resp.VendorID {
				vendors[i].HasResponded = true
			}
		}
		req.Vendors = vendors
		r.m.requests[req.ID] = req
	}
	return nil
}

func (r memoryQuotes) GetResponse(_ context.Context, id string) (*domain.QuoteResponse, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	resp, ok := r.m.responses[id]
	if !ok {
		return nil, apperrors.NewNotFound("quote response", map[string]any{"id": id})
	}
	return &resp, nil
}

func (r memoryQuotes) ReviewResponse(_ context.Context, resp *domain.QuoteResponse) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.responses[resp.ID]; !ok {
		return apperrors.NewNotFound("quote response", map[string]any{"id": resp.ID})
	}
	r.m.responses[resp.ID] = *resp
	return nil
}

// hydrate must be called with mu held.
func (m *MemoryStore) hydrate(req domain.QuoteRequest) domain.QuoteRequest {
	req.Vendors = append([]domain.VendorSelection{}, req.Vendors...)
	req.Responses = nil
	for _, resp := range m.responses {
		if resp.QuoteRequestID == req.ID {
			req.Responses = append(req.Responses, resp)
		}
	}
	sort.Slice(req.Responses, func(i, j int) bool {
		if req.Responses[i].SubmittedAt.Equal(req.Responses[j].SubmittedAt) {
			return req.Responses[i].ID < req.Responses[j].ID
		}
		return req.Responses[i].SubmittedAt.Before(req.Responses[j].SubmittedAt)
	})
	return req
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return &u, nil
}

func (r memoryUsers) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.User, 0)
	for _, u := range r.m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func statusIn(list []domain.ComplaintStatus, s domain.ComplaintStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func priorityIn(list []domain.Priority, p domain.Priority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}
