package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/events"
	"github.com/spec-kit/complaint-workflow/internal/notes"
	"github.com/spec-kit/complaint-workflow/internal/notify"
	"github.com/spec-kit/complaint-workflow/internal/observability"
	"github.com/spec-kit/complaint-workflow/internal/quote"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	"github.com/spec-kit/complaint-workflow/internal/workflow"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

var (
	employee = domain.Session{ActorID: "emp-1", Role: domain.RoleEmployee, DisplayName: "Jane"}
	other    = domain.Session{ActorID: "emp-2", Role: domain.RoleEmployee, DisplayName: "Ken"}
	handler  = domain.Session{ActorID: "ats-1", Role: domain.RoleATS, DisplayName: "Omar"}
	midLevel = domain.Session{ActorID: "am-1", Role: domain.RoleAssistantManager, DisplayName: "Lena"}
	manager  = domain.Session{ActorID: "mgr-1", Role: domain.RoleManager, DisplayName: "Ravi"}
	vendorA  = domain.Session{ActorID: "ven-1", Role: domain.RoleVendor, DisplayName: "Acme"}
	vendorB  = domain.Session{ActorID: "ven-2", Role: domain.RoleVendor, DisplayName: "Bolt"}
)

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *recordingDeliverer) Deliver(_ context.Context, n domain.Notification) (*notify.DeliveryStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return &notify.DeliveryStatus{NotificationID: n.ID, Attempts: 1, Outcome: notify.OutcomePrimary}, nil
}

func (r *recordingDeliverer) to(recipient string) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.sent {
		if n.RecipientID == recipient {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	svc     *WorkflowService
	store   repository.Store
	metrics *observability.Metrics
}

func newHarness(t *testing.T, delivery Deliverer) *harness {
	t.Helper()
	mem := repository.NewMemoryStore(
		domain.User{ID: "ats-1", Name: "Omar", Role: domain.RoleATS},
		domain.User{ID: "ats-2", Name: "Mina", Role: domain.RoleATS},
		domain.User{ID: "mgr-1", Name: "Ravi", Role: domain.RoleManager},
	)
	store := mem.Store()
	bus := events.NewInMemoryDispatcher(zap.NewNop())
	NewNotificationService(bus, delivery, store.Users, zap.NewNop()).RegisterHandlers()

	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	metrics := observability.NewMetrics()
	svc := NewWorkflowService(Dependencies{
		Store:      store,
		Dispatcher: bus,
		Logger:     zap.NewNop(),
		Metrics:    metrics,
		Now:        now,
	})
	return &harness{svc: svc, store: store, metrics: metrics}
}

func (h *harness) submit(t *testing.T) *domain.Complaint {
	t.Helper()
	c, err := h.svc.Submit(context.Background(), employee, "Broken office chairs", "Three chairs in room 4 are broken", domain.PriorityHigh)
	require.NoError(t, err)
	return c
}

func (h *harness) apply(t *testing.T, sess domain.Session, id string, cmd workflow.Command) *TransitionResult {
	t.Helper()
	res, err := h.svc.Transition(context.Background(), sess, id, cmd, 0)
	require.NoError(t, err)
	return res
}

func (h *harness) procure(t *testing.T, vendors ...string) (*domain.Complaint, *domain.QuoteRequest) {
	t.Helper()
	c := h.submit(t)
	h.apply(t, handler, c.ID, workflow.Assign{})
	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Chairs are beyond repair"})
	h.apply(t, midLevel, c.ID, workflow.Approve{})
	res := h.apply(t, manager, c.ID, workflow.ApproveWithQuotes{
		Comment: "Get quotes",
		Request: workflow.QuoteDraft{Title: "Replacement chairs", VendorIDs: vendors},
	})
	require.NotNil(t, res.QuoteRequest)
	return res.Complaint, res.QuoteRequest
}

func TestFullProcurementPathNotifiesSubmitter(t *testing.T) {
	sent := &recordingDeliverer{}
	h := newHarness(t, sent)

	c, req := h.procure(t, "ven-1", "ven-2", "ven-1")

	assert.Equal(t, domain.StatusInProgress, c.Status)
	assert.EqualValues(t, 5, c.Version)
	assert.Equal(t, domain.QuoteRequestOpen, req.Status)
	assert.Len(t, req.Vendors, 2)
	assert.Equal(t, c.ID, req.ComplaintID)
	assert.Equal(t, domain.PriorityHigh, req.Priority)

	inbox := sent.to(employee.ActorID)
	require.Len(t, inbox, 3)
	assert.Equal(t, notify.MessageForwardedToMidLevel, inbox[0].Message)
	assert.Equal(t, domain.NotificationForwardedToMidLevel, inbox[0].Type)
	assert.Equal(t, notify.MessageForwardedToFinal, inbox[1].Message)
	assert.Equal(t, notify.MessageSentToVendor, inbox[2].Message)
	assert.Equal(t, string(domain.StatusInProgress), inbox[2].Metadata.Status)
	assert.Equal(t, c.ID, inbox[2].RelatedID)

	snap := h.metrics.Snapshot()
	assert.EqualValues(t, 1, snap.Transitions["forward|in_progress|forwarded"])
	assert.EqualValues(t, 1, snap.Transitions["approve_with_quotes|pending_manager_approval|in_progress"])
}

func TestTransitionVersionConflict(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	c := h.submit(t)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, handler, c.ID, workflow.Assign{}, c.Version)
	require.NoError(t, err)

	_, err = h.svc.Transition(ctx, handler, c.ID, workflow.Forward{Justification: "Needs replacement parts"}, c.Version)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := h.svc.Get(ctx, handler, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
}

func TestValidationRunsBeforePersistence(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	_, err := h.svc.Transition(context.Background(), handler, "does-not-exist", workflow.Forward{Justification: "short"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrMissingJustification)
}

func TestNotificationFailureLeavesTransitionApplied(t *testing.T) {
	failing := notify.ChannelFunc(func(context.Context, domain.Notification) error {
		return errors.New("inbox down")
	})
	delivery := notify.NewDispatcher(notify.DispatcherOptions{Primary: failing, Fallback: failing})
	h := newHarness(t, delivery)
	c := h.submit(t)

	res, err := h.svc.Transition(context.Background(), handler, c.ID, workflow.Forward{Justification: "Chairs are beyond repair"}, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusForwarded, res.To)

	stored, err := h.svc.Get(context.Background(), handler, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusForwarded, stored.Status)
	assert.Contains(t, stored.Notes, "Forwarded from ATS to Assistant Manager: Chairs are beyond repair")
}

func TestConflictingProcurement(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	c, _ := h.procure(t, "ven-1")
	ctx := context.Background()

	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Quotes still outstanding"})
	h.apply(t, midLevel, c.ID, workflow.Approve{})

	_, err := h.svc.Transition(ctx, manager, c.ID, workflow.ApproveWithQuotes{Request: workflow.QuoteDraft{Title: "Again"}}, 0)
	assert.ErrorIs(t, err, apperrors.ErrConflictingProcurement)

	_, err = h.svc.Transition(ctx, manager, c.ID, workflow.Reject{Reason: "Too expensive"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrConflictingProcurement)

	stored, err := h.svc.Get(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingManagerApproval, stored.Status)
}

func TestRejectNotifiesHandlersAndReopen(t *testing.T) {
	sent := &recordingDeliverer{}
	h := newHarness(t, sent)
	c := h.submit(t)
	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Chairs are beyond repair"})

	res := h.apply(t, midLevel, c.ID, workflow.Reject{Reason: "Use spare chairs"})
	assert.Equal(t, domain.StatusClosed, res.To)
	require.NotNil(t, res.Complaint.Rejection)

	for _, id := range []string{"ats-1", "ats-2"} {
		inbox := sent.to(id)
		require.Len(t, inbox, 1, id)
		assert.Equal(t, `Complaint "Broken office chairs" was rejected by the Assistant Manager: Use spare chairs`, inbox[0].Message)
		assert.Equal(t, domain.NotificationRejected, inbox[0].Type)
	}

	reopened := h.apply(t, handler, c.ID, workflow.Reopen{})
	assert.Equal(t, domain.StatusOpen, reopened.To)
	assert.Nil(t, reopened.Complaint.Rejection)
}

func TestResolveNotifiesSubmitter(t *testing.T) {
	sent := &recordingDeliverer{}
	h := newHarness(t, sent)
	c := h.submit(t)

	res := h.apply(t, handler, c.ID, workflow.Resolve{Notes: "Chairs swapped"})
	assert.Equal(t, domain.StatusResolved, res.To)
	require.NotNil(t, res.Complaint.ResolvedAt)

	inbox := sent.to(employee.ActorID)
	require.Len(t, inbox, 1)
	assert.Equal(t, `Your complaint "Broken office chairs" has been resolved by the support team.`, inbox[0].Message)
}

func TestReplyRouting(t *testing.T) {
	sent := &recordingDeliverer{}
	h := newHarness(t, sent)
	c := h.submit(t)

	h.apply(t, employee, c.ID, workflow.Reply{Body: "Any update?"})
	require.Len(t, sent.to("ats-1"), 1)
	require.Len(t, sent.to("ats-2"), 1)
	assert.Equal(t, `New message from Jane on complaint "Broken office chairs"`, sent.to("ats-1")[0].Message)

	h.apply(t, handler, c.ID, workflow.Assign{})
	h.apply(t, employee, c.ID, workflow.Reply{Body: "Still broken"})
	assert.Len(t, sent.to("ats-1"), 2)
	assert.Len(t, sent.to("ats-2"), 1)

	h.apply(t, handler, c.ID, workflow.Reply{Body: "On my way"})
	inbox := sent.to(employee.ActorID)
	require.Len(t, inbox, 1)
	assert.Equal(t, `New message from ATS Omar on complaint "Broken office chairs"`, inbox[0].Message)
	assert.Equal(t, domain.NotificationMessage, inbox[0].Type)

	_, err := h.svc.Transition(context.Background(), other, c.ID, workflow.Reply{Body: "hi"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConversationViews(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	c := h.submit(t)
	h.apply(t, employee, c.ID, workflow.Reply{Body: "Printer is jammed"})
	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Needs a new fuser unit"})
	h.apply(t, handler, c.ID, workflow.Reply{Body: "Parts ordered"})
	ctx := context.Background()

	staff, err := h.svc.Conversation(ctx, handler, c.ID, false)
	require.NoError(t, err)
	require.Len(t, staff, 3)
	assert.Equal(t, domain.MessageKindForwarded, staff[1].Kind)
	assert.Equal(t, "Assistant Manager", staff[1].Recipient)
	for i, m := range staff {
		assert.Equal(t, i, m.Sequence)
	}

	view, err := h.svc.Conversation(ctx, employee, c.ID, false)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, "Printer is jammed", view[0].Body)
	assert.Equal(t, "Parts ordered", view[1].Body)

	_, err = h.svc.Conversation(ctx, other, c.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLegacyConversationSurvivesFirstTransition(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()

	blob := notes.Append("", notes.Chat("Employee Jane", "Chairs are broken"))
	blob = notes.Append(blob, notes.Chat("ATS Omar", "Checking stock"))
	legacy := &domain.Complaint{Title: "Legacy chairs", SubmitterID: employee.ActorID, Status: domain.StatusInProgress, Notes: blob}
	require.NoError(t, h.store.Complaints.Create(ctx, legacy))

	before, err := h.svc.Conversation(ctx, handler, legacy.ID, false)
	require.NoError(t, err)
	require.Len(t, before, 2)

	h.apply(t, employee, legacy.ID, workflow.Reply{Body: "Any news?"})

	after, err := h.svc.Conversation(ctx, handler, legacy.ID, false)
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, "Chairs are broken", after[0].Body)
	assert.Equal(t, "Checking stock", after[1].Body)
	assert.Equal(t, "Any news?", after[2].Body)

	rows, err := h.store.Messages.ListByComplaint(ctx, legacy.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, m := range rows {
		assert.Equal(t, i, m.Sequence)
	}
}

func TestConversationFallsBackToNotesWhileTableIsIncomplete(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()

	blob := notes.Append("", notes.Chat("Employee Jane", "Chairs are broken"))
	blob = notes.Append(blob, notes.Chat("ATS Omar", "Checking stock"))
	c := &domain.Complaint{Title: "Half mirrored", SubmitterID: employee.ActorID, Status: domain.StatusInProgress, Notes: blob}
	require.NoError(t, h.store.Complaints.Create(ctx, c))
	require.NoError(t, h.store.Messages.Append(ctx, notes.Import(c.ID, blob, c.UpdatedAt)[1]))

	msgs, err := h.svc.Conversation(ctx, handler, c.ID, false)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Chairs are broken", msgs[0].Body)
}

func TestListScopesEmployees(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	h.submit(t)
	_, err := h.svc.Submit(context.Background(), other, "Noisy fan", "", "")
	require.NoError(t, err)

	own, err := h.svc.List(context.Background(), employee, repository.ComplaintFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, employee.ActorID, own[0].SubmitterID)

	all, err := h.svc.List(context.Background(), handler, repository.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = h.svc.List(context.Background(), vendorA, repository.ComplaintFilter{})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestQuoteResponsesAndReview(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	c, req := h.procure(t, "ven-1", "ven-2")
	ctx := context.Background()

	first, err := h.svc.SubmitQuoteResponse(ctx, vendorA, req.ID, QuoteResponseInput{Amount: 1200, DeliveryTimeline: "2 weeks", Proposal: "Ergonomic"})
	require.NoError(t, err)

	stored, err := h.svc.GetQuoteRequest(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteRequestPending, stored.Status)

	_, err = h.svc.SubmitQuoteResponse(ctx, vendorA, req.ID, QuoteResponseInput{Amount: 1100, DeliveryTimeline: "2 weeks"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateResponse)

	_, err = h.svc.SubmitQuoteResponse(ctx, domain.Session{ActorID: "ven-9", Role: domain.RoleVendor}, req.ID, QuoteResponseInput{Amount: 900, DeliveryTimeline: "1 week"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	second, err := h.svc.SubmitQuoteResponse(ctx, vendorB, req.ID, QuoteResponseInput{Amount: 1500, DeliveryTimeline: "5 days"})
	require.NoError(t, err)

	ranked, err := h.svc.CompareQuotes(ctx, manager, req.ID, quote.CostFavoring)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, second.ID, ranked[0].ResponseID)
	assert.Equal(t, 86, ranked[0].RoundedWeighted())
	assert.Equal(t, 81, ranked[1].RoundedWeighted())

	_, err = h.svc.CompareQuotes(ctx, manager, req.ID, quote.Weights{Cost: 0.6, Timeline: 0.6})
	assert.ErrorIs(t, err, apperrors.ErrInvalidWeights)

	accepted, err := h.svc.ReviewQuoteResponse(ctx, manager, second.ID, domain.QuoteResponseAccepted, "Faster delivery")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteResponseAccepted, accepted.Status)
	require.NotNil(t, accepted.ReviewerID)

	fulfilled, err := h.svc.GetQuoteRequest(ctx, manager, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteRequestFulfilled, fulfilled.Status)

	_, err = h.svc.ReviewQuoteResponse(ctx, manager, first.ID, domain.QuoteResponseRejected, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	complaint, err := h.svc.Get(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Contains(t, complaint.Notes, "Approved by Manager: Accepted quote of 1500.00 from vendor ven-2 (5 days)")
}

func TestNegotiatingResponseMayBeRevised(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	_, req := h.procure(t, "ven-1")
	ctx := context.Background()

	first, err := h.svc.SubmitQuoteResponse(ctx, vendorA, req.ID, QuoteResponseInput{Amount: 1200, DeliveryTimeline: "2 weeks"})
	require.NoError(t, err)
	_, err = h.svc.ReviewQuoteResponse(ctx, manager, first.ID, domain.QuoteResponseNegotiating, "Can you do better?")
	require.NoError(t, err)

	revised, err := h.svc.SubmitQuoteResponse(ctx, vendorA, req.ID, QuoteResponseInput{Amount: 1000, DeliveryTimeline: "2 weeks"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, revised.ID)

	view, err := h.svc.GetQuoteRequest(ctx, vendorA, req.ID)
	require.NoError(t, err)
	require.Len(t, view.Responses, 1)
	assert.Equal(t, 1000.0, view.Responses[0].Amount)
}

func TestAddVendorOpensDraftAndCancel(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	c, req := h.procure(t)
	ctx := context.Background()
	require.Equal(t, domain.QuoteRequestDraft, req.Status)

	updated, err := h.svc.AddVendor(ctx, manager, req.ID, "ven-1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteRequestOpen, updated.Status)

	again, err := h.svc.AddVendor(ctx, manager, req.ID, "ven-1")
	require.NoError(t, err)
	assert.Len(t, again.Vendors, 1)

	_, err = h.svc.AddVendor(ctx, vendorA, req.ID, "ven-2")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	cancelled, err := h.svc.CancelQuoteRequest(ctx, manager, req.ID, "Budget frozen")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteRequestCancelled, cancelled.Status)

	_, err = h.svc.CancelQuoteRequest(ctx, manager, req.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = h.svc.SubmitQuoteResponse(ctx, vendorA, req.ID, QuoteResponseInput{Amount: 10, DeliveryTimeline: "1 day"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Cancelled requests no longer block a rejection.
	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Quotes were cancelled"})
	res := h.apply(t, midLevel, c.ID, workflow.Reject{Reason: "No budget"})
	assert.Equal(t, domain.StatusClosed, res.To)
}

func TestInboxOperations(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()
	c := h.submit(t)

	for _, id := range []string{"n-1", "n-2"} {
		require.NoError(t, h.store.Notifications.Create(ctx, domain.Notification{ID: id, RecipientID: employee.ActorID, Message: "hello", RelatedID: c.ID}))
	}

	count, err := h.svc.UnreadCount(ctx, employee)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, h.svc.MarkRead(ctx, employee, "n-1"))
	assert.ErrorIs(t, h.svc.MarkRead(ctx, other, "n-2"), apperrors.ErrNotFound)

	snapshot, err := h.svc.Inbox(ctx, employee)
	require.NoError(t, err)
	assert.Len(t, snapshot.Unread, 1)
	require.Len(t, snapshot.Complaints, 1)
	assert.Equal(t, c.ID, snapshot.Complaints[0].ID)

	updated, err := h.svc.MarkAllRead(ctx, employee)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	require.NoError(t, h.svc.DeleteNotification(ctx, employee, "n-2"))
	list, err := h.svc.Notifications(ctx, employee, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.svc.Notifications(ctx, domain.Session{Role: domain.RoleEmployee}, false, 0)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestATSQueueIncludesRejectedComplaints(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()

	waiting := h.submit(t)
	rejected := h.submit(t)
	h.apply(t, handler, rejected.ID, workflow.Forward{Justification: "Chairs are beyond repair"})
	h.apply(t, midLevel, rejected.ID, workflow.Reject{Reason: "Use spare chairs"})
	escalated := h.submit(t)
	h.apply(t, handler, escalated.ID, workflow.Forward{Justification: "Needs a purchase order"})
	settled := &domain.Complaint{Title: "Settled", SubmitterID: employee.ActorID, Status: domain.StatusClosed}
	require.NoError(t, h.store.Complaints.Create(ctx, settled))

	snapshot, err := h.svc.Inbox(ctx, handler)
	require.NoError(t, err)
	ids := make([]string, 0, len(snapshot.Complaints))
	for _, c := range snapshot.Complaints {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{waiting.ID, rejected.ID}, ids)

	h.apply(t, handler, rejected.ID, workflow.Reopen{})
	snapshot, err = h.svc.Inbox(ctx, handler)
	require.NoError(t, err)
	assert.Len(t, snapshot.Complaints, 2)

	mid, err := h.svc.Inbox(ctx, midLevel)
	require.NoError(t, err)
	require.Len(t, mid.Complaints, 1)
	assert.Equal(t, escalated.ID, mid.Complaints[0].ID)
}

type failingComplaints struct {
	repository.ComplaintRepository
	err error
}

func (f failingComplaints) Update(context.Context, *domain.Complaint, int64) error { return f.err }

type failingQuotes struct {
	repository.QuoteRepository
	err error
}

func (f failingQuotes) CreateRequest(context.Context, *domain.QuoteRequest) error { return f.err }

func (h *harness) pendingApproval(t *testing.T) *domain.Complaint {
	t.Helper()
	c := h.submit(t)
	h.apply(t, handler, c.ID, workflow.Assign{})
	h.apply(t, handler, c.ID, workflow.Forward{Justification: "Chairs are beyond repair"})
	return h.apply(t, midLevel, c.ID, workflow.Approve{}).Complaint
}

func TestApproveWithQuotesWithdrawsRequestWhenWriteFails(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()
	c := h.pendingApproval(t)
	cmd := workflow.ApproveWithQuotes{Comment: "Get quotes", Request: workflow.QuoteDraft{Title: "Replacement chairs", VendorIDs: []string{"ven-1"}}}

	h.svc.complaints = failingComplaints{ComplaintRepository: h.store.Complaints, err: errors.New("database unavailable")}
	_, err := h.svc.Transition(ctx, manager, c.ID, cmd, 0)
	require.Error(t, err)
	h.svc.complaints = h.store.Complaints

	requests, err := h.store.Quotes.ListByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, domain.QuoteRequestCancelled, requests[0].Status)

	stored, err := h.svc.Get(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingManagerApproval, stored.Status)
	assert.NotContains(t, stored.Notes, "Approved by Manager")

	res := h.apply(t, manager, c.ID, cmd)
	assert.Equal(t, domain.StatusInProgress, res.To)
	require.NotNil(t, res.QuoteRequest)
	assert.Equal(t, domain.QuoteRequestOpen, res.QuoteRequest.Status)
}

func TestApproveWithQuotesLeavesComplaintWhenRequestFails(t *testing.T) {
	h := newHarness(t, &recordingDeliverer{})
	ctx := context.Background()
	c := h.pendingApproval(t)
	cmd := workflow.ApproveWithQuotes{Comment: "Get quotes", Request: workflow.QuoteDraft{Title: "Replacement chairs"}}

	h.svc.quotes = failingQuotes{QuoteRepository: h.store.Quotes, err: errors.New("quotes unavailable")}
	_, err := h.svc.Transition(ctx, manager, c.ID, cmd, 0)
	require.Error(t, err)
	h.svc.quotes = h.store.Quotes

	stored, err := h.svc.Get(ctx, manager, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingManagerApproval, stored.Status)
	assert.Equal(t, c.Version, stored.Version)

	res := h.apply(t, manager, c.ID, cmd)
	assert.Equal(t, domain.StatusInProgress, res.To)
	require.NotNil(t, res.QuoteRequest)
}
