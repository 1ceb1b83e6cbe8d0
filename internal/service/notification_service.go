package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/events"
	"github.com/spec-kit/complaint-workflow/internal/notify"
	"github.com/spec-kit/complaint-workflow/internal/repository"
)

// Deliverer sends one notification. *notify.Dispatcher implements it.
type Deliverer interface {
	Deliver(ctx context.Context, n domain.Notification) (*notify.DeliveryStatus, error)
}

// NotificationService turns domain events into inbox notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	delivery   Deliverer
	users      repository.UserDirectory
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, delivery Deliverer, users repository.UserDirectory, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		delivery:   delivery,
		users:      users,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintForwarded, n.handleForwarded)
	n.dispatcher.Subscribe(events.EventComplaintEscalated, n.handleEscalated)
	n.dispatcher.Subscribe(events.EventComplaintSentToVendor, n.handleSentToVendor)
	n.dispatcher.Subscribe(events.EventComplaintResolved, n.handleResolved)
	n.dispatcher.Subscribe(events.EventComplaintRejected, n.handleRejected)
	n.dispatcher.Subscribe(events.EventComplaintReplied, n.handleReplied)
}

func (n *NotificationService) handleForwarded(ctx context.Context, event events.Event) error {
	p, err := transitionPayload(event)
	if err != nil {
		return err
	}
	return n.send(ctx, event, []string{p.Complaint.SubmitterID}, domain.NotificationForwardedToMidLevel, notify.MessageForwardedToMidLevel, p.NewStatus)
}

func (n *NotificationService) handleEscalated(ctx context.Context, event events.Event) error {
	p, err := transitionPayload(event)
	if err != nil {
		return err
	}
	return n.send(ctx, event, []string{p.Complaint.SubmitterID}, domain.NotificationForwardedToFinal, notify.MessageForwardedToFinal, p.NewStatus)
}

func (n *NotificationService) handleSentToVendor(ctx context.Context, event events.Event) error {
	p, err := transitionPayload(event)
	if err != nil {
		return err
	}
	return n.send(ctx, event, []string{p.Complaint.SubmitterID}, domain.NotificationSentToVendor, notify.MessageSentToVendor, p.NewStatus)
}

func (n *NotificationService) handleResolved(ctx context.Context, event events.Event) error {
	p, err := transitionPayload(event)
	if err != nil {
		return err
	}
	return n.send(ctx, event, []string{p.Complaint.SubmitterID}, domain.NotificationResolved, notify.ResolvedMessage(p.Complaint.Title), p.NewStatus)
}

func (n *NotificationService) handleRejected(ctx context.Context, event events.Event) error {
	p, err := transitionPayload(event)
	if err != nil {
		return err
	}
	recipients, err := n.handlers(ctx, p.Complaint)
	if err != nil {
		return err
	}
	message := notify.RejectedMessage(p.Complaint.Title, event.Actor.Role, p.Reason)
	return n.send(ctx, event, recipients, domain.NotificationRejected, message, p.NewStatus)
}

func (n *NotificationService) handleReplied(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.ReplyPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	complaint := p.Complaint

	if event.Actor.ID == complaint.SubmitterID {
		recipients, err := n.handlers(ctx, complaint)
		if err != nil {
			return err
		}
		sender := event.Actor.DisplayName
		if sender == "" {
			sender = event.Actor.Label()
		}
		return n.send(ctx, event, recipients, domain.NotificationMessage, notify.ReplyMessage(sender, complaint.Title), complaint.Status)
	}
	return n.send(ctx, event, []string{complaint.SubmitterID}, domain.NotificationMessage, notify.ReplyMessage(event.Actor.Label(), complaint.Title), complaint.Status)
}

// handlers resolves the assignee, or every first-line handler when the
// complaint is unassigned.
func (n *NotificationService) handlers(ctx context.Context, c events.ComplaintSnapshot) ([]string, error) {
	if c.AssigneeID != nil && *c.AssigneeID != "" {
		return []string{*c.AssigneeID}, nil
	}
	if n.users == nil {
		return nil, nil
	}
	users, err := n.users.ListByRole(ctx, domain.RoleATS)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, recipients []string, typ domain.NotificationType, message string, status domain.ComplaintStatus) error {
	if n.delivery == nil {
		return nil
	}
	actor := domain.Session{ActorID: event.Actor.ID, Role: event.Actor.Role, DisplayName: event.Actor.DisplayName}
	var errs []error
	for _, recipient := range recipients {
		if recipient == "" || recipient == event.Actor.ID {
			continue
		}
		notification := notify.Compose(recipient, typ, message, event.ComplaintID, actor, status)
		delivery, err := n.delivery.Deliver(ctx, notification)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n.logger.Debug("notification dispatched",
			zap.String("event_type", string(event.Type)),
			zap.String("complaint_id", event.ComplaintID),
			zap.String("recipient_id", recipient),
			zap.String("outcome", string(delivery.Outcome)))
	}
	return errors.Join(errs...)
}

func transitionPayload(event events.Event) (events.TransitionPayload, error) {
	p, ok := event.Payload.(events.TransitionPayload)
	if !ok {
		return events.TransitionPayload{}, fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return p, nil
}
