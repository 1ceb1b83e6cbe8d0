package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/service"
)

// NotificationsHandler exposes the session's inbox.
type NotificationsHandler struct {
	service *service.WorkflowService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(workflowService *service.WorkflowService) *NotificationsHandler {
	return &NotificationsHandler{service: workflowService}
}

// List GET /notifications?unread_only=&limit=.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	items, err := h.service.Notifications(c.UserContext(), sess, parseBool(c.Query("unread_only")), parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponses(items)})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	count, err := h.service.UnreadCount(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"unread": count}})
}

// MarkRead PUT /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(c.UserContext(), sess, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkAllRead PUT /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	updated, err := h.service.MarkAllRead(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Delete DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteNotification(c.UserContext(), sess, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
