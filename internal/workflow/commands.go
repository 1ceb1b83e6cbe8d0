package workflow

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// MinJustificationLength is the shortest accepted procurement justification.
const MinJustificationLength = 10

// Action names a transition command.
type Action string

const (
	ActionAssign            Action = "assign"
	ActionForward           Action = "forward"
	ActionApprove           Action = "approve"
	ActionForwardToFinal    Action = "forward_to_final"
	ActionReject            Action = "reject"
	ActionApproveWithQuotes Action = "approve_with_quotes"
	ActionResolve           Action = "resolve"
	ActionReply             Action = "reply"
	ActionReopen            Action = "reopen"
)

// Command is one of the transition variants below. Each variant carries only
// the fields its action needs.
type Command interface {
	Action() Action
	Validate() error
	isCommand()
}

// Assign takes an open complaint into handling by the acting ATS member.
type Assign struct{}

// Forward sends a complaint to the Assistant Manager for procurement approval.
type Forward struct {
	Justification string
	Comment       string
}

// Approve moves a forwarded complaint to the Manager.
type Approve struct {
	Comment string
}

// ForwardToFinal escalates a forwarded complaint to the Manager without approving it.
type ForwardToFinal struct {
	Comment string
}

// Reject closes the complaint and tags it with the rejection.
type Reject struct {
	Reason string
}

// ApproveWithQuotes returns the complaint to handling and opens a quote request.
type ApproveWithQuotes struct {
	Comment string
	Request QuoteDraft
}

// Resolve marks the complaint resolved.
type Resolve struct {
	Notes string
}

// Reply adds a conversation message without changing status.
type Reply struct {
	Body string
}

// Reopen returns a rejected complaint to the handling queue.
type Reopen struct {
	Comment string
}

// QuoteDraft describes the quote request opened by ApproveWithQuotes.
type QuoteDraft struct {
	Title        string
	Description  string
	Requirements string
	Budget       *float64
	Priority     domain.Priority
	DueDate      *time.Time
	VendorIDs    []string
}

func (Assign) Action() Action            { return ActionAssign }
func (Forward) Action() Action           { return ActionForward }
func (Approve) Action() Action           { return ActionApprove }
func (ForwardToFinal) Action() Action    { return ActionForwardToFinal }
func (Reject) Action() Action            { return ActionReject }
func (ApproveWithQuotes) Action() Action { return ActionApproveWithQuotes }
func (Resolve) Action() Action           { return ActionResolve }
func (Reply) Action() Action             { return ActionReply }
func (Reopen) Action() Action            { return ActionReopen }

func (Assign) isCommand()            {}
func (Forward) isCommand()           {}
func (Approve) isCommand()           {}
func (ForwardToFinal) isCommand()    {}
func (Reject) isCommand()            {}
func (ApproveWithQuotes) isCommand() {}
func (Resolve) isCommand()           {}
func (Reply) isCommand()             {}
func (Reopen) isCommand()            {}

func (Assign) Validate() error { return nil }

func (c Forward) Validate() error {
	if utf8.RuneCountInString(strings.TrimSpace(c.Justification)) < MinJustificationLength {
		return apperrors.NewMissingJustification("procurement justification must be at least 10 characters", map[string]any{
			"field":     "justification",
			"minLength": MinJustificationLength,
		})
	}
	return nil
}

func (Approve) Validate() error { return nil }

func (ForwardToFinal) Validate() error { return nil }

func (c Reject) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return apperrors.NewMissingJustification("rejection reason is required", map[string]any{"field": "reason"})
	}
	return nil
}

func (c ApproveWithQuotes) Validate() error {
	if strings.TrimSpace(c.Request.Title) == "" {
		return apperrors.NewValidationError("quote request title is required", map[string]any{"field": "request.title"})
	}
	if c.Request.Budget != nil && *c.Request.Budget < 0 {
		return apperrors.NewValidationError("quote request budget must not be negative", map[string]any{"field": "request.budget"})
	}
	if c.Request.Priority != "" && !c.Request.Priority.Valid() {
		return apperrors.NewValidationError("invalid quote request priority", map[string]any{"field": "request.priority"})
	}
	return nil
}

func (c Resolve) Validate() error {
	if strings.TrimSpace(c.Notes) == "" {
		return apperrors.NewMissingJustification("resolution notes are required", map[string]any{"field": "notes"})
	}
	return nil
}

func (c Reply) Validate() error {
	if strings.TrimSpace(c.Body) == "" {
		return apperrors.NewMissingJustification("reply body is required", map[string]any{"field": "body"})
	}
	return nil
}

func (Reopen) Validate() error { return nil }
