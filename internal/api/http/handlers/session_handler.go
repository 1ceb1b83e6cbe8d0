package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/service"
	"github.com/spec-kit/complaint-workflow/internal/worker"
)

// SessionHandler starts and stops the inbox poller of a session.
type SessionHandler struct {
	service *service.WorkflowService
	pollers *worker.PollerRegistry
}

// NewSessionHandler constructs handler.
func NewSessionHandler(workflowService *service.WorkflowService, pollers *worker.PollerRegistry) *SessionHandler {
	return &SessionHandler{service: workflowService, pollers: pollers}
}

// Inbox GET /session/inbox. The first call of a session starts its poller and
// answers with a fresh snapshot; later calls return the latest polled one.
func (h *SessionHandler) Inbox(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	_, running := h.pollers.Get(sess)
	poller := h.pollers.Start(sess)

	snapshot := poller.Snapshot()
	if !running || snapshot == nil {
		snapshot, err = h.service.Inbox(c.UserContext(), sess)
		if err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": inboxResponse(snapshot, poller.Interval(), poller.Err())})
}

// End DELETE /session stops the session's poller.
func (h *SessionHandler) End(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	h.pollers.Stop(sess)
	return c.SendStatus(fiber.StatusNoContent)
}
