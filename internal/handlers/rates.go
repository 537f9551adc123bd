package handlers

import (
	"fxmatch/internal/models"
	"fxmatch/internal/services/engine"
	"fxmatch/internal/services/rates"
	"fxmatch/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// RatesHandler exposes the rate table and internal exchange quotes.
type RatesHandler struct {
	table  *rates.Table
	engine engine.Service
}

// NewRatesHandler creates a new RatesHandler.
func NewRatesHandler(table *rates.Table, e engine.Service) *RatesHandler {
	return &RatesHandler{table: table, engine: e}
}

// Rate handles GET /api/rates/:from/:to.
func (h *RatesHandler) Rate(c *fiber.Ctx) error {
	from := models.Currency(c.Params("from"))
	to := models.Currency(c.Params("to"))
	if !from.IsSupported() || !to.IsSupported() {
		return response.BadRequest(c, "unknown currency code")
	}
	return response.Success(c, "exchange rate", fiber.Map{
		"from": from,
		"to":   to,
		"rate": h.table.Rate(from, to),
	})
}

// Quote handles GET /api/quote?amount=&from=&to= for internal exchanges.
func (h *RatesHandler) Quote(c *fiber.Ctx) error {
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		return response.BadRequest(c, "invalid amount")
	}
	quote, err := h.engine.Quote(amount, models.Currency(c.Query("from")), models.Currency(c.Query("to")))
	if err != nil {
		return response.DomainError(c, err)
	}
	return response.Success(c, "exchange quote", quote)
}
