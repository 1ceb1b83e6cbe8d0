package notes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

var stamp = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func TestAppendToEmptyBlobDecodesSingleMessage(t *testing.T) {
	blob := Append("", Chat("Employee Jane", "Printer is jammed"))
	require.Equal(t, "Message from Employee Jane: Printer is jammed", blob)

	msgs := Decode(blob, DecodeOptions{ComplaintID: "c1", Timestamp: stamp})
	require.Len(t, msgs, 1)
	assert.Equal(t, "Employee Jane", msgs[0].Sender)
	assert.Equal(t, "Printer is jammed", msgs[0].Body)
	assert.Equal(t, domain.MessageKindMessage, msgs[0].Kind)
	assert.Equal(t, "note-c1-0", msgs[0].ID)
	assert.Equal(t, stamp, msgs[0].CreatedAt)
}

func TestAppendTrimsExistingBlob(t *testing.T) {
	blob := Append("Message from ATS Omar: hi\n\n  ", Chat("Employee Jane", "hello"))
	assert.Equal(t, "Message from ATS Omar: hi\nMessage from Employee Jane: hello", blob)
}

func conversation() []Entry {
	return []Entry{
		Chat("Employee Jane", "Printer is jammed"),
		Chat("ATS Omar", "Looking into it: parts may be needed"),
		Forwarded("ATS", "Assistant Manager", "Needs a new fuser unit"),
		Approved("Assistant Manager", "Approved for final review"),
		Forwarded("Assistant Manager", "Manager", "Escalating"),
		Rejected("Manager", "Budget frozen"),
		Generic("Resolved by ATS", "Cleared the jam"),
		System("Assigned to ATS Omar"),
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	blob := ""
	entries := conversation()
	for _, e := range entries {
		blob = Append(blob, e)
	}

	msgs := Decode(blob, DecodeOptions{ComplaintID: "c9", Timestamp: stamp})
	require.Len(t, msgs, len(entries))
	for i, e := range entries {
		assert.Equal(t, e.Kind, msgs[i].Kind, "entry %d", i)
		assert.Equal(t, e.Sender, msgs[i].Sender, "entry %d", i)
		assert.Equal(t, e.Body, msgs[i].Body, "entry %d", i)
		assert.Equal(t, i, msgs[i].Sequence)
	}
	assert.Equal(t, "Assistant Manager", msgs[2].Recipient)
	assert.Equal(t, "Manager", msgs[4].Recipient)
	assert.Equal(t, "note-c9-system-7", msgs[7].ID)
}

func TestRenderReproducesBlob(t *testing.T) {
	blob := ""
	for _, e := range conversation() {
		blob = Append(blob, e)
	}
	msgs := Decode(blob, DecodeOptions{ComplaintID: "c9"})
	assert.Equal(t, blob, Render(msgs))
}

func TestLineNormalizesInput(t *testing.T) {
	line := Line(Chat("ATS: Omar\n", "  first line\nsecond line\r\nthird  "))
	assert.Equal(t, "Message from ATS Omar: first line second line third", line)

	msgs := Decode(line, DecodeOptions{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "ATS Omar", msgs[0].Sender)

	assert.Equal(t, "Message from Unknown: (empty)", Line(Chat("", "  ")))
	assert.Equal(t, "note - colon", Line(System("note: colon")))
}

func TestDecodeClassifiesUnknownLines(t *testing.T) {
	blob := "Status update: waiting on parts\nplain text line\n\n"
	msgs := Decode(blob, DecodeOptions{ComplaintID: "x"})
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.MessageKindGeneric, msgs[0].Kind)
	assert.Equal(t, "Status update", msgs[0].Sender)
	assert.Equal(t, "waiting on parts", msgs[0].Body)
	assert.Equal(t, domain.MessageKindSystem, msgs[1].Kind)
	assert.Equal(t, SystemSender, msgs[1].Sender)
	assert.Equal(t, "plain text line", msgs[1].Body)
	assert.Equal(t, "note-x-system-1", msgs[1].ID)
}

func TestDecodeEmptyBlob(t *testing.T) {
	assert.Empty(t, Decode("", DecodeOptions{}))
	assert.Empty(t, Decode("\n  \n", DecodeOptions{}))
}

func TestEmployeeViewRedactsRouting(t *testing.T) {
	blob := "Message from Employee Jane: Printer is jammed\n" +
		"Forwarded from ATS to Assistant Manager: Needs a new fuser unit\n" +
		"Status: sent for review\n" +
		"Complaint forwarded to Manager\n" +
		"Message from ATS Omar: We are on it"

	msgs := Decode(blob, DecodeOptions{ComplaintID: "c1", EmployeeView: true})
	require.Len(t, msgs, 2)
	assert.Equal(t, "Printer is jammed", msgs[0].Body)
	assert.Equal(t, "We are on it", msgs[1].Body)
	assert.Equal(t, "note-c1-1", msgs[1].ID)
}

func TestEmployeeViewIsIdempotent(t *testing.T) {
	blob := ""
	for _, e := range conversation() {
		blob = Append(blob, e)
	}
	opts := DecodeOptions{ComplaintID: "c1", EmployeeView: true}
	once := Decode(blob, opts)
	twice := Decode(Render(once), opts)
	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].Body, twice[i].Body)
		assert.Equal(t, once[i].Sender, twice[i].Sender)
	}
	for _, m := range once {
		assert.NotEqual(t, domain.MessageKindForwarded, m.Kind)
	}
}

func TestImportAssignsFreshIDs(t *testing.T) {
	blob := Append(Append("", Chat("Employee Jane", "one")), Chat("ATS Omar", "two"))
	msgs := Import("c1", blob, stamp)
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
	assert.NotContains(t, msgs[0].ID, "note-")
	assert.Equal(t, "c1", msgs[1].ComplaintID)
	assert.Equal(t, 1, msgs[1].Sequence)
}

func TestRedactMatchesEmployeeDecode(t *testing.T) {
	blob := ""
	for _, e := range conversation() {
		blob = Append(blob, e)
	}
	stored := Import("c1", blob, stamp)
	redacted := Redact(stored)
	decoded := Decode(blob, DecodeOptions{ComplaintID: "c1", EmployeeView: true})
	require.Len(t, redacted, len(decoded))
	for i := range decoded {
		assert.Equal(t, decoded[i].Body, redacted[i].Body)
	}
	assert.Equal(t, stored[0].ID, redacted[0].ID)
}
