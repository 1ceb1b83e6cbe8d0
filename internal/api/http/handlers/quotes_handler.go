package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-workflow/internal/api/dto"
	"github.com/spec-kit/complaint-workflow/internal/quote"
	"github.com/spec-kit/complaint-workflow/internal/service"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

// QuotesHandler exposes quote requests, vendor offers and their comparison.
type QuotesHandler struct {
	service *service.WorkflowService
}

// NewQuotesHandler constructs handler.
func NewQuotesHandler(workflowService *service.WorkflowService) *QuotesHandler {
	return &QuotesHandler{service: workflowService}
}

// GetQuoteRequest GET /quote-requests/:id.
func (h *QuotesHandler) GetQuoteRequest(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	request, err := h.service.GetQuoteRequest(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteRequestResponse(request)})
}

// AddVendor POST /quote-requests/:id/vendors.
func (h *QuotesHandler) AddVendor(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.AddVendorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.VendorID == "" {
		return apperrors.NewValidationError("vendor_id required", map[string]any{"field": "vendor_id"})
	}
	request, err := h.service.AddVendor(c.UserContext(), sess, c.Params("id"), req.VendorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteRequestResponse(request)})
}

// CancelQuoteRequest POST /quote-requests/:id/cancel.
func (h *QuotesHandler) CancelQuoteRequest(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.CancelQuoteRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	request, err := h.service.CancelQuoteRequest(c.UserContext(), sess, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteRequestResponse(request)})
}

// SubmitResponse POST /quote-requests/:id/responses.
func (h *QuotesHandler) SubmitResponse(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SubmitQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	response, err := h.service.SubmitQuoteResponse(c.UserContext(), sess, c.Params("id"), service.QuoteResponseInput{
		Amount:           req.Amount,
		DeliveryTimeline: req.DeliveryTimeline,
		Proposal:         req.Proposal,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": quoteResponseResponse(response)})
}

// ReviewResponse PUT /quote-responses/:id/review.
func (h *QuotesHandler) ReviewResponse(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.ReviewQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	response, err := h.service.ReviewQuoteResponse(c.UserContext(), sess, c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quoteResponseResponse(response)})
}

// Compare GET /quote-requests/:id/compare?preset=cost|balanced|timeline or
// ?cost_weight=&timeline_weight=. Cost favoring is the default.
func (h *QuotesHandler) Compare(c *fiber.Ctx) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	req := dto.CompareQuotesRequest{Preset: c.Query("preset")}
	if req.CostWeight, err = queryFloat(c, "cost_weight"); err != nil {
		return err
	}
	if req.TimelineWeight, err = queryFloat(c, "timeline_weight"); err != nil {
		return err
	}
	weights, err := parseWeights(req)
	if err != nil {
		return err
	}
	scores, err := h.service.CompareQuotes(c.UserContext(), sess, c.Params("id"), weights)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"weights": fiber.Map{"cost_weight": weights.Cost, "timeline_weight": weights.Timeline},
		"ranking": scoreResponses(scores),
	}})
}

func parseWeights(req dto.CompareQuotesRequest) (quote.Weights, error) {
	if req.CostWeight != nil || req.TimelineWeight != nil {
		if req.CostWeight == nil || req.TimelineWeight == nil {
			return quote.Weights{}, apperrors.NewInvalidWeights("cost_weight and timeline_weight must be given together", nil)
		}
		return quote.Weights{Cost: *req.CostWeight, Timeline: *req.TimelineWeight}, nil
	}
	if req.Preset == "" {
		return quote.CostFavoring, nil
	}
	w, ok := quote.Preset(req.Preset)
	if !ok {
		return quote.Weights{}, apperrors.NewInvalidWeights("unknown weight preset", map[string]any{"preset": req.Preset})
	}
	return w, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.NewInvalidWeights("weights must be numbers", map[string]any{"field": key})
	}
	return &v, nil
}
