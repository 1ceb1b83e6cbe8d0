// Package notes encodes a complaint conversation into the single notes text
// field and decodes it back into ordered messages.
//
// The notes field is append-only: Append concatenates one line per entry and
// never rewrites earlier lines. Decode is total: it never fails and always
// returns something renderable.
package notes

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

const (
	prefixMessage   = "Message from"
	prefixForwarded = "Forwarded from"
	prefixApproved  = "Approved by"
	prefixRejected  = "Rejected by"

	// SystemSender labels lines that match no known pattern.
	SystemSender = "System"

	unknownSender = "Unknown"
	emptyBody     = "(empty)"
)

var (
	prefixedLine = regexp.MustCompile(`^(Message from|Forwarded from|Approved by|Rejected by) ([^:]+): (.+)$`)
	genericLine  = regexp.MustCompile(`^([^:]+): (.+)$`)

	lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// Entry is a single conversation line before encoding.
type Entry struct {
	Kind      domain.MessageKind
	Sender    string
	Recipient string
	Body      string
}

// Chat builds a "Message from" entry.
func Chat(sender, body string) Entry {
	return Entry{Kind: domain.MessageKindMessage, Sender: sender, Body: body}
}

// Forwarded builds a "Forwarded from <from> to <to>" entry.
func Forwarded(from, to, body string) Entry {
	return Entry{Kind: domain.MessageKindForwarded, Sender: from, Recipient: to, Body: body}
}

// Approved builds an "Approved by" entry.
func Approved(by, body string) Entry {
	return Entry{Kind: domain.MessageKindApproved, Sender: by, Body: body}
}

// Rejected builds a "Rejected by" entry.
func Rejected(by, body string) Entry {
	return Entry{Kind: domain.MessageKindRejected, Sender: by, Body: body}
}

// Generic builds a "<source>: <body>" entry.
func Generic(source, body string) Entry {
	return Entry{Kind: domain.MessageKindGeneric, Sender: source, Body: body}
}

// System builds a bare line attributed to System on decode.
func System(text string) Entry {
	return Entry{Kind: domain.MessageKindSystem, Sender: SystemSender, Body: text}
}

// Line formats e as one canonical notes line. Senders lose colons and line
// breaks; bodies lose line breaks and surrounding whitespace.
func Line(e Entry) string {
	body := normalizeBody(e.Body)
	switch e.Kind {
	case domain.MessageKindForwarded:
		return fmt.Sprintf("%s %s to %s: %s", prefixForwarded, normalizeSender(e.Sender), normalizeSender(e.Recipient), body)
	case domain.MessageKindApproved:
		return fmt.Sprintf("%s %s: %s", prefixApproved, normalizeSender(e.Sender), body)
	case domain.MessageKindRejected:
		return fmt.Sprintf("%s %s: %s", prefixRejected, normalizeSender(e.Sender), body)
	case domain.MessageKindGeneric:
		return fmt.Sprintf("%s: %s", normalizeSender(e.Sender), body)
	case domain.MessageKindSystem:
		// a ": " inside a bare line would decode as a generic entry
		return strings.ReplaceAll(body, ": ", " - ")
	default:
		return fmt.Sprintf("%s %s: %s", prefixMessage, normalizeSender(e.Sender), body)
	}
}

// Append returns blob with e appended as a new line.
func Append(blob string, e Entry) string {
	line := Line(e)
	existing := strings.TrimRight(blob, " \t\r\n")
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// DecodeOptions controls message reconstruction.
type DecodeOptions struct {
	ComplaintID string
	// Timestamp is stamped on every decoded message; the blob carries none.
	Timestamp time.Time
	// EmployeeView hides lines that reveal internal routing. This is a display
	// redaction for the submitter's audience, not an access control.
	EmployeeView bool
}

// Decode splits blob into ordered messages.
func Decode(blob string, opts DecodeOptions) []domain.Message {
	lines := strings.Split(blob, "\n")
	out := make([]domain.Message, 0, len(lines))
	parsed := 0
	index := 0

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parsed++

		msg, system := classify(line)
		if opts.EmployeeView && hidden(msg, line) {
			continue
		}
		msg.ComplaintID = opts.ComplaintID
		msg.CreatedAt = opts.Timestamp
		msg.Sequence = index
		if system {
			msg.ID = fmt.Sprintf("note-%s-system-%d", opts.ComplaintID, index)
		} else {
			msg.ID = fmt.Sprintf("note-%s-%d", opts.ComplaintID, index)
		}
		index++
		out = append(out, msg)
	}

	if parsed == 0 && strings.TrimSpace(blob) != "" {
		if opts.EmployeeView && mentionsRouting(blob) {
			return out
		}
		return []domain.Message{{
			ID:          fmt.Sprintf("note-%s-system", opts.ComplaintID),
			ComplaintID: opts.ComplaintID,
			Kind:        domain.MessageKindSystem,
			Sender:      SystemSender,
			Body:        blob,
			CreatedAt:   opts.Timestamp,
		}}
	}
	return out
}

// Render re-encodes messages into a notes blob. For messages decoded from a
// blob built with Append the result is byte-identical to that blob.
func Render(messages []domain.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Line(EntryOf(m)))
	}
	return b.String()
}

// EntryOf converts a message back into an encodable entry.
func EntryOf(m domain.Message) Entry {
	return Entry{Kind: m.Kind, Sender: m.Sender, Recipient: m.Recipient, Body: m.Body}
}

// Redact applies the employee-view filter to stored messages.
func Redact(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if hidden(m, Line(EntryOf(m))) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Import converts a legacy blob into message records for a backfill of the
// message table. Re-running it is safe because rows are keyed by sequence.
func Import(complaintID, blob string, at time.Time) []domain.Message {
	msgs := Decode(blob, DecodeOptions{ComplaintID: complaintID, Timestamp: at})
	for i := range msgs {
		msgs[i].ID = uuid.NewString()
	}
	return msgs
}

func classify(line string) (domain.Message, bool) {
	if m := prefixedLine.FindStringSubmatch(line); m != nil {
		sender := strings.TrimSpace(m[2])
		body := strings.TrimSpace(m[3])
		if body != "" {
			msg := domain.Message{Sender: sender, Body: body}
			switch m[1] {
			case prefixForwarded:
				msg.Kind = domain.MessageKindForwarded
				if idx := strings.LastIndex(sender, " to "); idx > 0 {
					msg.Sender = strings.TrimSpace(sender[:idx])
					msg.Recipient = strings.TrimSpace(sender[idx+len(" to "):])
				}
			case prefixApproved:
				msg.Kind = domain.MessageKindApproved
			case prefixRejected:
				msg.Kind = domain.MessageKindRejected
			default:
				msg.Kind = domain.MessageKindMessage
			}
			return msg, false
		}
	}
	if m := genericLine.FindStringSubmatch(line); m != nil {
		source := strings.TrimSpace(m[1])
		content := strings.TrimSpace(m[2])
		if source != "" && content != "" {
			return domain.Message{Kind: domain.MessageKindGeneric, Sender: source, Body: content}, false
		}
	}
	return domain.Message{Kind: domain.MessageKindSystem, Sender: SystemSender, Body: line}, true
}

func hidden(msg domain.Message, line string) bool {
	switch msg.Kind {
	case domain.MessageKindForwarded:
		return true
	case domain.MessageKindGeneric, domain.MessageKindSystem:
		return mentionsRouting(line)
	default:
		return false
	}
}

func mentionsRouting(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "forwarded to") || strings.Contains(lower, "for review")
}

func normalizeSender(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(lineBreaks.Replace(s), ":", ""))
	if s == "" {
		return unknownSender
	}
	return s
}

func normalizeBody(s string) string {
	s = strings.TrimSpace(lineBreaks.Replace(s))
	if s == "" {
		return emptyBody
	}
	return s
}
