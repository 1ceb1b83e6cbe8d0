package domain

import (
	"context"
	"strings"
	"time"
)

// Role identifies an organizational role in the workflow.
type Role string

const (
	RoleEmployee         Role = "employee"
	RoleATS              Role = "ats"
	RoleAssistantManager Role = "assistant_manager"
	RoleManager          Role = "manager"
	RoleVendor           Role = "vendor"
	RoleAdmin            Role = "admin"
)

// Label returns the human-facing role name used in conversation lines.
func (r Role) Label() string {
	switch r {
	case RoleEmployee:
		return "Employee"
	case RoleATS:
		return "ATS"
	case RoleAssistantManager:
		return "Assistant Manager"
	case RoleManager:
		return "Manager"
	case RoleVendor:
		return "Vendor"
	case RoleAdmin:
		return "Admin"
	default:
		return "System"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleATS, RoleAssistantManager, RoleManager, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role belongs to complaint handling staff.
func (r Role) Staff() bool {
	switch r {
	case RoleATS, RoleAssistantManager, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Session is the explicit identity passed into every workflow call.
type Session struct {
	ID          string
	ActorID     string
	Role        Role
	DisplayName string
	Token       string
	// ExpiresAt is when the bearer token stops being valid; zero means no
	// known expiry.
	ExpiresAt time.Time
}

// Expired reports whether the session ended at or before now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SenderLabel is the conversation label for this actor, e.g. "Employee Jane".
func (s Session) SenderLabel() string {
	name := strings.TrimSpace(s.DisplayName)
	if name == "" {
		return s.Role.Label()
	}
	return s.Role.Label() + " " + name
}

// User is a directory entry used for notification fan-out.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

type sessionKey struct{}

// WithSession attaches s to ctx so outbound calls can act on the caller's
// behalf.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session attached by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
