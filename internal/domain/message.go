package domain

import "time"

// MessageKind classifies a conversation entry.
type MessageKind string

const (
	MessageKindMessage   MessageKind = "message"
	MessageKindForwarded MessageKind = "forwarded"
	MessageKindApproved  MessageKind = "approved"
	MessageKindRejected  MessageKind = "rejected"
	MessageKindGeneric   MessageKind = "generic"
	MessageKindSystem    MessageKind = "system"
)

// Message is one entry of a complaint conversation.
type Message struct {
	ID          string
	ComplaintID string
	Sequence    int
	Kind        MessageKind
	Sender      string
	Recipient   string
	Body        string
	CreatedAt   time.Time
}
