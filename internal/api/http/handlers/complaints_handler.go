package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/api/dto"
	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/repository"
	"github.com/spec-kit/complaint-workflow/internal/service"
	"github.com/spec-kit/complaint-workflow/internal/workflow"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// ComplaintsHandler exposes complaint queries and role actions.
type ComplaintsHandler struct {
	service *service.WorkflowService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(workflowService *service.WorkflowService) *ComplaintsHandler {
	return &ComplaintsHandler{service: workflowService}
}

// CreateComplaint POST /complaints.
func (h *ComplaintsHandler) CreateComplaint(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	complaint, err := h.service.Submit(c.UserContext(), sess, req.Title, req.Description, req.Priority)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintDetail(complaint, workflow.Available(complaint, sess))})
}

// ListComplaints GET /complaints.
func (h *ComplaintsHandler) ListComplaints(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	complaints, err := h.service.List(c.UserContext(), sess, parseComplaintQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// GetComplaint GET /complaints/:id.
func (h *ComplaintsHandler) GetComplaint(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	complaint, err := h.service.Get(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderETag, strconv.FormatInt(complaint.Version, 10))
	return c.JSON(fiber.Map{"data": complaintDetail(complaint, workflow.Available(complaint, sess))})
}

// Conversation GET /complaints/:id/conversation.
func (h *ComplaintsHandler) Conversation(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	employeeView := c.Query("view") == "employee"
	messages, err := h.service.Conversation(c.UserContext(), sess, c.Params("id"), employeeView)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(messages)})
}

// AvailableActions GET /complaints/:id/actions.
func (h *ComplaintsHandler) AvailableActions(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	actions, err := h.service.AvailableActions(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, string(a))
	}
	return c.JSON(fiber.Map{"data": names})
}

// ListQuoteRequests GET /complaints/:id/quote-requests.
func (h *ComplaintsHandler) ListQuoteRequests(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	requests, err := h.service.ListQuoteRequests(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.QuoteRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, quoteRequestResponse(&requests[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /complaints/:id/actions/:action. The expected version comes
// from If-Match, or from the body when the header is absent.
func (h *ComplaintsHandler) Transition(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	cmd, err := commandFor(c.Params("action"), req)
	if err != nil {
		return err
	}
	version, err := expectedVersion(c.Get(fiber.HeaderIfMatch), req.Version)
	if err != nil {
		return err
	}

	result, err := h.service.Transition(c.UserContext(), sess, c.Params("id"), cmd, version)
	if err != nil {
		return err
	}

	resp := dto.TransitionResponse{
		Action:    string(result.Action),
		From:      result.From,
		To:        result.To,
		Complaint: complaintDetail(result.Complaint, workflow.Available(result.Complaint, sess)),
	}
	if result.QuoteRequest != nil {
		qr := quoteRequestResponse(result.QuoteRequest)
		resp.QuoteRequest = &qr
	}
	c.Set(fiber.HeaderETag, strconv.FormatInt(result.Complaint.Version, 10))
	return c.JSON(fiber.Map{"data": resp})
}

// commandFor builds the command of a URL action name.
func commandFor(action string, req dto.TransitionRequest) (workflow.Command, error) {
	switch strings.ToLower(action) {
	case "assign":
		return workflow.Assign{}, nil
	case "forward":
		return workflow.Forward{Justification: req.Justification, Comment: req.Comment}, nil
	case "approve":
		return workflow.Approve{Comment: req.Comment}, nil
	case "escalate", "forward_to_final":
		return workflow.ForwardToFinal{Comment: req.Comment}, nil
	case "reject":
		return workflow.Reject{Reason: req.Reason}, nil
	case "procure", "approve_with_quotes":
		cmd := workflow.ApproveWithQuotes{Comment: req.Comment}
		if req.QuoteRequest != nil {
			cmd.Request = workflow.QuoteDraft{
				Title:        req.QuoteRequest.Title,
				Description:  req.QuoteRequest.Description,
				Requirements: req.QuoteRequest.Requirements,
				Budget:       req.QuoteRequest.Budget,
				Priority:     req.QuoteRequest.Priority,
				DueDate:      req.QuoteRequest.DueDate,
				VendorIDs:    req.QuoteRequest.VendorIDs,
			}
		}
		return cmd, nil
	case "resolve":
		return workflow.Resolve{Notes: req.Notes}, nil
	case "reopen":
		return workflow.Reopen{Comment: req.Comment}, nil
	case "reply", "replies":
		return workflow.Reply{Body: req.Body}, nil
	default:
		return nil, apperrors.NewValidationError("unknown action", map[string]any{"action": action})
	}
}

func expectedVersion(ifMatch string, fallback int64) (int64, error) {
	tag := strings.TrimSpace(ifMatch)
	if tag == "" || tag == "*" {
		return fallback, nil
	}
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.Trim(tag, `"`)
	version, err := strconv.ParseInt(tag, 10, 64)
	if err != nil || version < 0 {
		return 0, apperrors.NewValidationError("invalid If-Match version", map[string]any{"header": fiber.HeaderIfMatch})
	}
	return version, nil
}

func parseComplaintQuery(c *fiber.Ctx) repository.ComplaintFilter {
	filter := repository.ComplaintFilter{}
	for _, part := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(part))
	}
	for _, part := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.Priority(part))
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
