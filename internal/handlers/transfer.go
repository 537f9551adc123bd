package handlers

import (
	"fxmatch/internal/models"
	"fxmatch/internal/services/engine"
	"fxmatch/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// TransferHandler exposes the matching engine over HTTP.
type TransferHandler struct {
	engine engine.Service
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(e engine.Service) *TransferHandler { return &TransferHandler{engine: e} }

// Submit handles POST /api/transfers. The request is accepted
// immediately; the caller polls GET /api/transfers/:id for the outcome.
func (h *TransferHandler) Submit(c *fiber.Ctx) error {
	var req struct {
		UserID         string `json:"user_id"`
		Amount         string `json:"amount"`
		SourceCurrency string `json:"source_currency"`
		TargetCurrency string `json:"target_currency"`
		Recipient      struct {
			Name          string `json:"name"`
			AccountNumber string `json:"account_number"`
			BankName      string `json:"bank_name"`
			Country       string `json:"country"`
		} `json:"recipient"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "invalid amount")
	}
	if req.Recipient.Name == "" || req.Recipient.AccountNumber == "" {
		return response.BadRequest(c, "recipient name and account are required")
	}

	handle, err := h.engine.Submit(c.Context(), engine.SubmitRequest{
		UserID:         req.UserID,
		Amount:         amount,
		SourceCurrency: models.Currency(req.SourceCurrency),
		TargetCurrency: models.Currency(req.TargetCurrency),
		Recipient: models.Recipient{
			Name:          req.Recipient.Name,
			AccountNumber: req.Recipient.AccountNumber,
			BankName:      req.Recipient.BankName,
			Country:       req.Recipient.Country,
		},
	})
	if err != nil {
		return response.DomainError(c, err)
	}
	// HTTP callers poll by id; the push feed is for in-process consumers.
	handle.Events.Close()

	return response.Success(c, "transfer submitted", fiber.Map{
		"request_id": handle.RequestID,
		"status":     handle.Status,
	})
}

// Status handles GET /api/transfers/:id.
func (h *TransferHandler) Status(c *fiber.Ctx) error {
	report, err := h.engine.Status(c.Params("id"))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "transfer status", report)
}

// Cancel handles DELETE /api/transfers/:id. Cancellation is idempotent.
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	h.engine.Cancel(c.Params("id"))
	return response.Success(c, "transfer cancelled", nil)
}

// PoolDepth handles GET /api/pool.
func (h *TransferHandler) PoolDepth(c *fiber.Ctx) error {
	return response.Success(c, "pool depth", h.engine.PoolDepth())
}
