package service

import (
	"context"
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

const inboxLimit = 50

// InboxSnapshot is what a session sees without asking: unread notifications
// and the complaints waiting on its role.
type InboxSnapshot struct {
	Unread     []domain.Notification
	Complaints []domain.Complaint
	TakenAt    time.Time
}

// Notifications lists the session's notifications, newest first.
func (s *WorkflowService) Notifications(ctx context.Context, sess domain.Session, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if err := requireActor(sess); err != nil {
		return nil, err
	}
	return s.notifications.List(domain.WithSession(ctx, sess), sess.ActorID, unreadOnly, limit)
}

// UnreadCount counts the session's unread notifications.
func (s *WorkflowService) UnreadCount(ctx context.Context, sess domain.Session) (int, error) {
	if err := requireActor(sess); err != nil {
		return 0, err
	}
	return s.notifications.UnreadCount(domain.WithSession(ctx, sess), sess.ActorID)
}

// MarkRead marks one of the session's notifications read.
func (s *WorkflowService) MarkRead(ctx context.Context, sess domain.Session, id string) error {
	if err := requireActor(sess); err != nil {
		return err
	}
	return s.notifications.MarkRead(domain.WithSession(ctx, sess), sess.ActorID, id)
}

// MarkAllRead marks every notification of the session read.
func (s *WorkflowService) MarkAllRead(ctx context.Context, sess domain.Session) (int64, error) {
	if err := requireActor(sess); err != nil {
		return 0, err
	}
	return s.notifications.MarkAllRead(domain.WithSession(ctx, sess), sess.ActorID)
}

// DeleteNotification removes one of the session's notifications.
func (s *WorkflowService) DeleteNotification(ctx context.Context, sess domain.Session, id string) error {
	if err := requireActor(sess); err != nil {
		return err
	}
	return s.notifications.Delete(domain.WithSession(ctx, sess), sess.ActorID, id)
}

// Inbox refreshes the snapshot polled for a session.
func (s *WorkflowService) Inbox(ctx context.Context, sess domain.Session) (*InboxSnapshot, error) {
	unread, err := s.Notifications(ctx, sess, true, inboxLimit)
	if err != nil {
		return nil, err
	}
	snapshot := &InboxSnapshot{Unread: unread, TakenAt: s.now()}

	filter, ok := queueFilter(sess)
	if !ok {
		return snapshot, nil
	}
	complaints, err := s.complaints.ListWithFilter(domain.WithSession(ctx, sess), filter)
	if err != nil {
		return nil, err
	}
	if sess.Role == domain.RoleATS {
		complaints = withoutSettledClosed(complaints)
	}
	snapshot.Complaints = complaints
	return snapshot, nil
}

// withoutSettledClosed keeps closed complaints only while they carry the
// rejection tag.
func withoutSettledClosed(complaints []domain.Complaint) []domain.Complaint {
	out := complaints[:0]
	for _, c := range complaints {
		if c.Status == domain.StatusClosed && !c.AwaitingAction() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// queueFilter selects the complaints waiting on the session's role.
func queueFilter(sess domain.Session) (repository.ComplaintFilter, bool) {
	filter := repository.ComplaintFilter{Limit: inboxLimit}
	switch sess.Role {
	case domain.RoleEmployee:
		owner := sess.ActorID
		filter.SubmitterID = &owner
		filter.Statuses = nonTerminal()
	case domain.RoleATS:
		// rejected complaints come back to ATS in closed
		filter.Statuses = []domain.ComplaintStatus{domain.StatusOpen, domain.StatusInProgress, domain.StatusClosed}
	case domain.RoleAssistantManager:
		filter.Statuses = []domain.ComplaintStatus{domain.StatusForwarded}
	case domain.RoleManager:
		filter.Statuses = []domain.ComplaintStatus{domain.StatusPendingManagerApproval}
	case domain.RoleAdmin:
		filter.Statuses = nonTerminal()
	default:
		return filter, false
	}
	return filter, true
}

func nonTerminal() []domain.ComplaintStatus {
	out := make([]domain.ComplaintStatus, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		if !status.Terminal() {
			out = append(out, status)
		}
	}
	return out
}

func requireActor(sess domain.Session) error {
	if sess.ActorID == "" {
		return apperrors.NewUnauthorized("session has no actor")
	}
	return nil
}
