package domain

import "time"

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusOpen                   ComplaintStatus = "open"
	StatusInProgress             ComplaintStatus = "in_progress"
	StatusForwarded              ComplaintStatus = "forwarded"
	StatusPendingManagerApproval ComplaintStatus = "pending_manager_approval"
	StatusResolved               ComplaintStatus = "resolved"
	StatusClosed                 ComplaintStatus = "closed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []ComplaintStatus{
	StatusOpen,
	StatusInProgress,
	StatusForwarded,
	StatusPendingManagerApproval,
	StatusResolved,
	StatusClosed,
}

// Terminal reports whether no further transitions (other than a reopen of a
// rejected complaint) are accepted.
func (s ComplaintStatus) Terminal() bool {
	return s == StatusResolved || s == StatusClosed
}

// Valid reports whether s is a known status.
func (s ComplaintStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Priority enumerates complaint urgency.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rejection tags a closed complaint that was rejected and awaits action.
type Rejection struct {
	Reason     string    `json:"reason"`
	RejectedBy Role      `json:"rejected_by"`
	RejectedAt time.Time `json:"rejected_at"`
}

// Complaint is the aggregate routed through the approval workflow.
type Complaint struct {
	ID                       string
	Title                    string
	Description              string
	Priority                 Priority
	Status                   ComplaintStatus
	SubmitterID              string
	SubmitterName            string
	AssigneeID               *string
	Notes                    string
	ProcurementJustification *string
	Rejection                *Rejection
	Version                  int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
	ResolvedAt               *time.Time
}

// Clone returns a deep copy so transitions never alias the caller's snapshot.
func (c *Complaint) Clone() *Complaint {
	if c == nil {
		return nil
	}
	out := *c
	if c.AssigneeID != nil {
		v := *c.AssigneeID
		out.AssigneeID = &v
	}
	if c.ProcurementJustification != nil {
		v := *c.ProcurementJustification
		out.ProcurementJustification = &v
	}
	if c.Rejection != nil {
		v := *c.Rejection
		out.Rejection = &v
	}
	if c.ResolvedAt != nil {
		v := *c.ResolvedAt
		out.ResolvedAt = &v
	}
	return &out
}

// AwaitingAction reports whether the complaint was rejected and can be reopened.
func (c *Complaint) AwaitingAction() bool {
	return c != nil && c.Status == StatusClosed && c.Rejection != nil
}
