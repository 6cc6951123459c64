// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/domain"
	"github.com/finsight/finsight/internal/modules/portfolio"
	"github.com/finsight/finsight/internal/modules/valuation"
)

// Handlers contains HTTP handlers for the valuation API.
type Handlers struct {
	service          *valuation.Service
	portfolioService *portfolio.Service
	log              zerolog.Logger
}

// New creates a new valuation handlers instance.
func New(service *valuation.Service, portfolioService *portfolio.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service:          service,
		portfolioService: portfolioService,
		log:              log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetValuation values the caller's portfolio at current prices.
// GET /api/portfolio/valuation
func (h *Handlers) HandleGetValuation(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("missing or invalid X-User-ID header"))
		return
	}

	p, err := h.portfolioService.GetByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	report, err := h.service.ComputeValuation(r.Context(), p.ID, time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to compute valuation")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, reportDTO(p, report))
}

// RegisterRoutes registers the valuation routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/portfolio/valuation", h.HandleGetValuation)
}

// reportDTO rounds the report for display. All derivations upstream run at
// full precision; two decimal places appear only here.
func reportDTO(p *portfolio.Portfolio, report *valuation.Report) map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(report.Rows))
	for _, row := range report.Rows {
		dto := map[string]interface{}{
			"ticker":            row.Ticker,
			"name":              row.Name,
			"shares":            row.Shares,
			"average_buy_price": row.AverageBuyPrice.StringFixed(2),
			"price_unavailable": row.PriceUnavailable,
		}
		if !row.PriceUnavailable {
			dto["current_price"] = row.CurrentPrice.StringFixed(2)
			dto["value"] = row.Value.StringFixed(2)
			dto["unrealized_pnl"] = row.UnrealizedPnL.StringFixed(2)
			dto["as_of"] = row.AsOf
		}
		rows = append(rows, dto)
	}

	top := make([]map[string]interface{}, 0, len(report.TopHoldings))
	for _, holding := range report.TopHoldings {
		top = append(top, map[string]interface{}{
			"ticker":           holding.Ticker,
			"value":            holding.Value.StringFixed(2),
			"percent_of_total": holding.PercentOfTotal.StringFixed(2),
		})
	}

	return map[string]interface{}{
		"portfolio_id":         report.PortfolioID,
		"cash_balance":         p.CashBalance.StringFixed(2),
		"rows":                 rows,
		"top_holdings":         top,
		"total_value":          report.TotalValue.StringFixed(2),
		"total_unrealized_pnl": report.TotalUnrealizedPnL.StringFixed(2),
		"prices_as_of":         report.PricesAsOf,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Ignore encode error - already committed response
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrQuoteUnavailable):
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]interface{}{"error": err.Error()})
}
