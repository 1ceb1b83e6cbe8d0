// Package workflow holds the complaint lifecycle: which role may issue which
// command from which status, and what the command does to the complaint.
//
// Apply is pure. It never touches persistence; the caller supplies the facts
// it needs (open quote requests) and writes the outcome.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/notes"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

var (
	ErrInvalidTransition      = apperrors.ErrInvalidTransition
	ErrMissingJustification   = apperrors.ErrMissingJustification
	ErrConflictingProcurement = apperrors.ErrConflictingProcurement
	ErrForbidden              = apperrors.ErrForbidden
)

// Default note bodies for commands whose comment is optional.
const (
	DefaultApproveComment      = "Approved for final approval"
	DefaultForwardFinalComment = "Escalated to the Manager"
	DefaultProcureComment      = "Approved, vendor quotes requested"
	DefaultReopenComment       = "Reopened for further handling"
)

type rule struct {
	roles []domain.Role
	from  []domain.ComplaintStatus
	to    domain.ComplaintStatus
}

var nonTerminal = []domain.ComplaintStatus{
	domain.StatusOpen,
	domain.StatusInProgress,
	domain.StatusForwarded,
	domain.StatusPendingManagerApproval,
}

var rules = map[Action]rule{
	ActionAssign: {
		roles: []domain.Role{domain.RoleATS},
		from:  []domain.ComplaintStatus{domain.StatusOpen},
		to:    domain.StatusInProgress,
	},
	ActionForward: {
		roles: []domain.Role{domain.RoleATS},
		from:  []domain.ComplaintStatus{domain.StatusOpen, domain.StatusInProgress},
		to:    domain.StatusForwarded,
	},
	ActionApprove: {
		roles: []domain.Role{domain.RoleAssistantManager},
		from:  []domain.ComplaintStatus{domain.StatusForwarded},
		to:    domain.StatusPendingManagerApproval,
	},
	ActionForwardToFinal: {
		roles: []domain.Role{domain.RoleAssistantManager},
		from:  []domain.ComplaintStatus{domain.StatusForwarded},
		to:    domain.StatusPendingManagerApproval,
	},
	ActionReject: {
		roles: []domain.Role{domain.RoleAssistantManager, domain.RoleManager},
		from:  []domain.ComplaintStatus{domain.StatusForwarded, domain.StatusPendingManagerApproval},
		to:    domain.StatusClosed,
	},
	ActionApproveWithQuotes: {
		roles: []domain.Role{domain.RoleManager},
		from:  []domain.ComplaintStatus{domain.StatusPendingManagerApproval},
		to:    domain.StatusInProgress,
	},
	ActionResolve: {
		roles: []domain.Role{domain.RoleATS},
		from:  []domain.ComplaintStatus{domain.StatusOpen, domain.StatusInProgress},
		to:    domain.StatusResolved,
	},
	ActionReply: {
		roles: []domain.Role{domain.RoleEmployee, domain.RoleATS, domain.RoleAssistantManager, domain.RoleManager},
		from:  nonTerminal,
	},
	ActionReopen: {
		roles: []domain.Role{domain.RoleATS},
		from:  []domain.ComplaintStatus{domain.StatusClosed},
		to:    domain.StatusOpen,
	},
}

// actionOrder fixes the order Available reports actions in.
var actionOrder = []Action{
	ActionAssign,
	ActionForward,
	ActionApprove,
	ActionForwardToFinal,
	ActionApproveWithQuotes,
	ActionReject,
	ActionResolve,
	ActionReopen,
	ActionReply,
}

// Facts are the externally held conditions a transition depends on.
type Facts struct {
	// OpenQuoteRequests counts draft, open or pending quote requests.
	OpenQuoteRequests int
}

// Outcome is the result of a successful Apply.
type Outcome struct {
	Action    Action
	From      domain.ComplaintStatus
	To        domain.ComplaintStatus
	Complaint *domain.Complaint
	// Entries are the conversation lines appended to the notes blob, in order.
	Entries []notes.Entry
}

// StatusChanged reports whether the command moved the complaint.
func (o Outcome) StatusChanged() bool {
	return o.From != o.To
}

// Apply checks cmd against the complaint and session and returns the updated
// copy. The input complaint is not modified. Checks run in order: command
// fields, role, source status, procurement facts.
func Apply(c *domain.Complaint, s domain.Session, cmd Command, facts Facts, now time.Time) (*Outcome, error) {
	if cmd == nil {
		return nil, apperrors.NewValidationError("command is required", nil)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	action := cmd.Action()
	r, ok := rules[action]
	if !ok {
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": action})
	}
	if !allowedRole(r, action, c, s) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("role %s may not %s this complaint", s.Role, action))
	}
	if !containsStatus(r.from, c.Status) || (action == ActionReopen && c.Rejection == nil) {
		return nil, apperrors.NewInvalidTransition(
			fmt.Sprintf("cannot %s a complaint in status %s", action, c.Status),
			map[string]any{"action": action, "status": c.Status},
		)
	}
	if (action == ActionReject || action == ActionApproveWithQuotes) && facts.OpenQuoteRequests > 0 {
		return nil, apperrors.NewConflictingProcurement(
			"complaint has quote requests in progress",
			map[string]any{"action": action, "openQuoteRequests": facts.OpenQuoteRequests},
		)
	}

	next := c.Clone()
	next.UpdatedAt = now
	out := &Outcome{Action: action, From: c.Status, To: c.Status, Complaint: next}
	if r.to != "" {
		next.Status = r.to
		out.To = r.to
	}

	switch cmd := cmd.(type) {
	case Assign:
		actorID := s.ActorID
		next.AssigneeID = &actorID
		out.Entries = append(out.Entries, notes.System("Assigned to "+s.SenderLabel()))
	case Forward:
		justification := strings.TrimSpace(cmd.Justification)
		next.ProcurementJustification = &justification
		out.Entries = append(out.Entries, notes.Forwarded(domain.RoleATS.Label(), domain.RoleAssistantManager.Label(), justification))
		if strings.TrimSpace(cmd.Comment) != "" {
			out.Entries = append(out.Entries, notes.Chat(s.SenderLabel(), cmd.Comment))
		}
	case Approve:
		out.Entries = append(out.Entries, notes.Approved(domain.RoleAssistantManager.Label(), orDefault(cmd.Comment, DefaultApproveComment)))
	case ForwardToFinal:
		out.Entries = append(out.Entries, notes.Forwarded(domain.RoleAssistantManager.Label(), domain.RoleManager.Label(), orDefault(cmd.Comment, DefaultForwardFinalComment)))
	case Reject:
		reason := strings.TrimSpace(cmd.Reason)
		next.Rejection = &domain.Rejection{Reason: reason, RejectedBy: s.Role, RejectedAt: now}
		out.Entries = append(out.Entries, notes.Rejected(s.Role.Label(), reason))
	case ApproveWithQuotes:
		out.Entries = append(out.Entries, notes.Approved(domain.RoleManager.Label(), orDefault(cmd.Comment, DefaultProcureComment)))
	case Resolve:
		resolvedAt := now
		next.ResolvedAt = &resolvedAt
		if next.AssigneeID == nil {
			actorID := s.ActorID
			next.AssigneeID = &actorID
		}
		out.Entries = append(out.Entries, notes.Generic("Resolved by "+domain.RoleATS.Label(), cmd.Notes))
	case Reply:
		out.Entries = append(out.Entries, notes.Chat(s.SenderLabel(), cmd.Body))
	case Reopen:
		next.Rejection = nil
		next.ResolvedAt = nil
		out.Entries = append(out.Entries, notes.Generic("Reopened by "+domain.RoleATS.Label(), orDefault(cmd.Comment, DefaultReopenComment)))
	}

	for _, entry := range out.Entries {
		next.Notes = notes.Append(next.Notes, entry)
	}
	return out, nil
}

// Available lists the actions the session could issue on c right now,
// ignoring command fields and procurement facts.
func Available(c *domain.Complaint, s domain.Session) []Action {
	actions := make([]Action, 0, len(actionOrder))
	for _, action := range actionOrder {
		r := rules[action]
		if !allowedRole(r, action, c, s) || !containsStatus(r.from, c.Status) {
			continue
		}
		if action == ActionReopen && c.Rejection == nil {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

// NewComplaint builds a fresh open complaint submitted by s.
func NewComplaint(s domain.Session, title, description string, priority domain.Priority, now time.Time) (*domain.Complaint, error) {
	if s.Role != domain.RoleEmployee {
		return nil, apperrors.NewForbidden("only employees submit complaints")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": priority})
	}
	return &domain.Complaint{
		Title:         title,
		Description:   strings.TrimSpace(description),
		Priority:      priority,
		Status:        domain.StatusOpen,
		SubmitterID:   s.ActorID,
		SubmitterName: strings.TrimSpace(s.DisplayName),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func allowedRole(r rule, action Action, c *domain.Complaint, s domain.Session) bool {
	if action == ActionReply {
		switch s.Role {
		case domain.RoleEmployee:
			return c.SubmitterID == s.ActorID
		case domain.RoleVendor:
			return false
		default:
			return s.Role.Staff()
		}
	}
	if s.Role == domain.RoleAdmin {
		return true
	}
	for _, role := range r.roles {
		if role == s.Role {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.ComplaintStatus, status domain.ComplaintStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

func orDefault(comment, fallback string) string {
	if strings.TrimSpace(comment) == "" {
		return fallback
	}
	return comment
}
