package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/complaint-workflow/internal/domain"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventComplaintResolved, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventComplaintResolved, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.ComplaintID)
		return nil
	})
	d.Subscribe(EventComplaintReplied, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventComplaintResolved, ComplaintID: "c1"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second:c1"}, calls)
}

func TestActorLabel(t *testing.T) {
	assert.Equal(t, "ATS Omar", Actor{Role: domain.RoleATS, DisplayName: "Omar"}.Label())
	assert.Equal(t, "Manager", Actor{Role: domain.RoleManager}.Label())
}
