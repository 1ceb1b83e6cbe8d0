package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/events"
	"github.com/spec-kit/complaint-workflow/internal/notes"
	"github.com/spec-kit/complaint-workflow/internal/observability"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	"github.com/spec-kit/complaint-workflow/internal/workflow"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// WorkflowService coordinates complaint lifecycle, conversation, quotes and
// the inbox on behalf of an explicit session.
type WorkflowService struct {
	complaints    repository.ComplaintRepository
	messages      repository.MessageRepository
	notifications repository.NotificationRepository
	quotes        repository.QuoteRepository
	users         repository.UserDirectory
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

// Dependencies bundles collaborators for the workflow service.
type Dependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Now        func() time.Time
}

// TransitionResult describes an applied command.
type TransitionResult struct {
	Action    workflow.Action
	From      domain.ComplaintStatus
	To        domain.ComplaintStatus
	Complaint *domain.Complaint
	// QuoteRequest is set when the command opened procurement.
	QuoteRequest *domain.QuoteRequest
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps Dependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &WorkflowService{
		complaints:    deps.Store.Complaints,
		messages:      deps.Store.Messages,
		notifications: deps.Store.Notifications,
		quotes:        deps.Store.Quotes,
		users:         deps.Store.Users,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		metrics:       deps.Metrics,
		now:           now,
	}
}

// Submit files a new complaint for an employee.
func (s *WorkflowService) Submit(ctx context.Context, sess domain.Session, title, description string, priority domain.Priority) (*domain.Complaint, error) {
	complaint, err := workflow.NewComplaint(sess, title, description, priority, s.now())
	if err != nil {
		return nil, err
	}
	ctx = domain.WithSession(ctx, sess)
	if err := s.complaints.Create(ctx, complaint); err != nil {
		return nil, err
	}
	s.logger.Info("complaint submitted",
		zap.String("complaint_id", complaint.ID),
		zap.String("submitter_id", complaint.SubmitterID))
	s.publishEvent(ctx, events.Event{
		Type:        events.EventComplaintSubmitted,
		ComplaintID: complaint.ID,
		Actor:       actorOf(sess),
		Payload: events.TransitionPayload{
			Complaint: snapshotOf(complaint),
			NewStatus: complaint.Status,
		},
	})
	return complaint, nil
}

// Get returns one complaint visible to the session.
func (s *WorkflowService) Get(ctx context.Context, sess domain.Session, id string) (*domain.Complaint, error) {
	ctx = domain.WithSession(ctx, sess)
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(sess, complaint); err != nil {
		return nil, err
	}
	return complaint, nil
}

// List returns complaints matching filter. Employees only ever see their own.
func (s *WorkflowService) List(ctx context.Context, sess domain.Session, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	switch {
	case sess.Role == domain.RoleEmployee:
		owner := sess.ActorID
		filter.SubmitterID = &owner
	case !sess.Role.Staff():
		return nil, apperrors.NewForbidden("role may not list complaints")
	}
	return s.complaints.ListWithFilter(domain.WithSession(ctx, sess), filter)
}

// Conversation returns the ordered messages of a complaint. Employees always
// receive the redacted view.
func (s *WorkflowService) Conversation(ctx context.Context, sess domain.Session, id string, employeeView bool) ([]domain.Message, error) {
	complaint, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if sess.Role == domain.RoleEmployee {
		employeeView = true
	}

	// The table is authoritative only once it holds every line of the blob.
	if s.messages != nil {
		stored, err := s.messages.ListByComplaint(domain.WithSession(ctx, sess), complaint.ID)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 && len(stored) >= len(notes.Decode(complaint.Notes, notes.DecodeOptions{ComplaintID: complaint.ID})) {
			if employeeView {
				return notes.Redact(stored), nil
			}
			return stored, nil
		}
	}

	return notes.Decode(complaint.Notes, notes.DecodeOptions{
		ComplaintID:  complaint.ID,
		Timestamp:    complaint.UpdatedAt,
		EmployeeView: employeeView,
	}), nil
}

// AvailableActions lists what the session may do next on the complaint.
func (s *WorkflowService) AvailableActions(ctx context.Context, sess domain.Session, id string) ([]workflow.Action, error) {
	complaint, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return workflow.Available(complaint, sess), nil
}

// Transition applies cmd to the complaint. expectedVersion is the version the
// caller last read; zero means the version fetched here.
func (s *WorkflowService) Transition(ctx context.Context, sess domain.Session, id string, cmd workflow.Command, expectedVersion int64) (*TransitionResult, error) {
	if cmd == nil {
		return nil, apperrors.NewValidationError("command is required", nil)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	ctx = domain.WithSession(ctx, sess)

	current, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(sess, current); err != nil {
		return nil, err
	}
	if expectedVersion == 0 {
		expectedVersion = current.Version
	}
	if current.Version != expectedVersion {
		return nil, apperrors.NewConflict("complaint was modified concurrently; re-fetch and retry", map[string]any{
			"id":              id,
			"expectedVersion": expectedVersion,
			"currentVersion":  current.Version,
		})
	}

	facts, err := s.procurementFacts(ctx, cmd.Action(), current.ID)
	if err != nil {
		return nil, err
	}

	outcome, err := workflow.Apply(current, sess, cmd, facts, s.now())
	if err != nil {
		return nil, err
	}

	next := outcome.Complaint
	result := &TransitionResult{
		Action:    outcome.Action,
		From:      outcome.From,
		To:        outcome.To,
		Complaint: next,
	}

	// Created before the approval is written; withdrawn if the write fails.
	if procure, ok := cmd.(workflow.ApproveWithQuotes); ok {
		req, err := s.openQuoteRequest(ctx, sess, next, procure.Request)
		if err != nil {
			return nil, err
		}
		result.QuoteRequest = req
	}

	if outcome.Action == workflow.ActionResolve {
		err = s.complaints.Resolve(ctx, next, expectedVersion)
	} else {
		err = s.complaints.Update(ctx, next, expectedVersion)
	}
	if err != nil {
		if result.QuoteRequest != nil {
			s.withdrawQuoteRequest(ctx, result.QuoteRequest)
		}
		return nil, err
	}

	s.appendMessages(ctx, current, outcome)

	s.metrics.RecordTransition(string(outcome.Action), string(outcome.From), string(outcome.To))
	s.logger.Info("complaint transition applied",
		zap.String("complaint_id", next.ID),
		zap.String("action", string(outcome.Action)),
		zap.String("from", string(outcome.From)),
		zap.String("to", string(outcome.To)),
		zap.Int64("version", next.Version))

	s.publishTransition(ctx, sess, cmd, outcome)
	return result, nil
}

// withdrawQuoteRequest cancels a request whose approval was never written.
func (s *WorkflowService) withdrawQuoteRequest(ctx context.Context, req *domain.QuoteRequest) {
	if err := s.quotes.UpdateStatus(context.WithoutCancel(ctx), req.ID, domain.QuoteRequestCancelled); err != nil {
		s.logger.Error("quote request left open after failed approval",
			zap.String("complaint_id", req.ComplaintID),
			zap.String("quote_request_id", req.ID),
			zap.Error(err))
		return
	}
	s.logger.Warn("quote request withdrawn after failed approval",
		zap.String("complaint_id", req.ComplaintID),
		zap.String("quote_request_id", req.ID))
}

func (s *WorkflowService) procurementFacts(ctx context.Context, action workflow.Action, complaintID string) (workflow.Facts, error) {
	if action != workflow.ActionReject && action != workflow.ActionApproveWithQuotes {
		return workflow.Facts{}, nil
	}
	requests, err := s.quotes.ListByComplaint(ctx, complaintID)
	if err != nil {
		return workflow.Facts{}, err
	}
	var facts workflow.Facts
	for _, req := range requests {
		if req.Status.InFlight() {
			facts.OpenQuoteRequests++
		}
	}
	return facts, nil
}

// appendMessages mirrors the new note lines into the message table. Lines of
// the previous blob that have no row yet are imported first, so the table
// never holds a gap. Failures are logged only; notes-import fills any rows
// still missing.
func (s *WorkflowService) appendMessages(ctx context.Context, prev *domain.Complaint, outcome *workflow.Outcome) {
	if s.messages == nil || len(outcome.Entries) == 0 {
		return
	}
	earlier := notes.Import(prev.ID, prev.Notes, prev.UpdatedAt)
	base := len(earlier)

	var rows []domain.Message
	count, err := s.messages.CountByComplaint(ctx, prev.ID)
	if err != nil || count < base {
		rows = append(rows, earlier...)
	}
	now := outcome.Complaint.UpdatedAt
	for i, entry := range outcome.Entries {
		line := notes.Decode(notes.Line(entry), notes.DecodeOptions{ComplaintID: prev.ID})
		if len(line) != 1 {
			continue
		}
		msg := line[0]
		msg.ID = uuid.NewString()
		msg.Sequence = base + i
		msg.CreatedAt = now
		rows = append(rows, msg)
	}
	if err := s.messages.Append(ctx, rows...); err != nil {
		s.logger.Warn("failed to append conversation rows",
			zap.String("complaint_id", prev.ID),
			zap.Error(err))
	}
}

func (s *WorkflowService) publishTransition(ctx context.Context, sess domain.Session, cmd workflow.Command, outcome *workflow.Outcome) {
	complaint := outcome.Complaint
	event := events.Event{
		ComplaintID: complaint.ID,
		Actor:       actorOf(sess),
	}
	payload := events.TransitionPayload{
		Complaint: snapshotOf(complaint),
		Action:    string(outcome.Action),
		OldStatus: outcome.From,
		NewStatus: outcome.To,
	}

	switch c := cmd.(type) {
	case workflow.Assign:
		event.Type = events.EventComplaintAssigned
	case workflow.Forward:
		event.Type = events.EventComplaintForwarded
		payload.Reason = strings.TrimSpace(c.Justification)
	case workflow.Approve, workflow.ForwardToFinal:
		event.Type = events.EventComplaintEscalated
	case workflow.ApproveWithQuotes:
		event.Type = events.EventComplaintSentToVendor
	case workflow.Reject:
		event.Type = events.EventComplaintRejected
		payload.Reason = strings.TrimSpace(c.Reason)
	case workflow.Resolve:
		event.Type = events.EventComplaintResolved
		payload.Reason = strings.TrimSpace(c.Notes)
	case workflow.Reopen:
		event.Type = events.EventComplaintReopened
	case workflow.Reply:
		event.Type = events.EventComplaintReplied
		event.Payload = events.ReplyPayload{
			Complaint:   snapshotOf(complaint),
			BodyPreview: preview(c.Body, 120),
		}
	default:
		return
	}
	if event.Payload == nil {
		event.Payload = payload
	}
	s.publishEvent(ctx, event)
}

// publishEvent runs subscribers detached from request cancellation.
func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(context.WithoutCancel(ctx), event)
}

func canView(sess domain.Session, c *domain.Complaint) error {
	switch {
	case sess.Role == domain.RoleEmployee:
		if c.SubmitterID != sess.ActorID {
			return apperrors.NewNotFound("complaint", map[string]any{"id": c.ID})
		}
		return nil
	case sess.Role.Staff():
		return nil
	default:
		return apperrors.NewForbidden("role may not view complaints")
	}
}

func actorOf(sess domain.Session) events.Actor {
	return events.Actor{ID: sess.ActorID, Role: sess.Role, DisplayName: sess.DisplayName}
}

func snapshotOf(c *domain.Complaint) events.ComplaintSnapshot {
	return events.ComplaintSnapshot{
		Title:       c.Title,
		SubmitterID: c.SubmitterID,
		AssigneeID:  c.AssigneeID,
		Status:      c.Status,
	}
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
