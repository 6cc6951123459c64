// Package handlers provides HTTP handlers for portfolio management.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
	"github.com/finsight/finsight/internal/modules/portfolio"
)

// Handlers contains HTTP handlers for the portfolio API.
type Handlers struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// New creates a new portfolio handlers instance.
func New(service *portfolio.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleCreate creates the caller's portfolio. One per user.
// POST /api/portfolio
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var input portfolio.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	p, err := h.service.Create(userID, input)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Failed to create portfolio")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, portfolioDTO(p))
}

// HandleGet returns the caller's portfolio.
// GET /api/portfolio
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, portfolioDTO(p))
}

// HandleExists reports whether the caller has a portfolio without returning
// it. GET /api/portfolio/exists
func (h *Handlers) HandleExists(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	exists, err := h.service.Exists(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"exists": exists})
}

// HandleUpdate edits the caller's portfolio profile fields.
// PUT /api/portfolio
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	existing, err := h.service.GetByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	var input portfolio.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	updated, err := h.service.Update(existing.ID, input)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", existing.ID).Msg("Failed to update portfolio")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, portfolioDTO(updated))
}

// HandleDelete removes the caller's portfolio and its transaction history.
// DELETE /api/portfolio
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetByUser(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.Delete(p.ID); err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to delete portfolio")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "deleted"})
}

// HandleAdminOverrideCash overwrites a portfolio's cash balance directly.
// Administrative override: no invariant checks, negative values allowed.
// PUT /api/admin/portfolios/{id}/cash
func (h *Handlers) HandleAdminOverrideCash(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("invalid portfolio id"))
		return
	}

	var body struct {
		CashBalance decimal.Decimal `json:"cash_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	p, err := h.service.AdminOverrideCash(id, body.CashBalance)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", id).Msg("Failed to override cash balance")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, portfolioDTO(p))
}

func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("missing or invalid X-User-ID header"))
		return 0, false
	}
	return userID, true
}

func portfolioDTO(p *portfolio.Portfolio) map[string]interface{} {
	diversification := make(map[string]string, len(p.Diversification))
	for ticker, weight := range p.Diversification {
		diversification[ticker] = weight.StringFixed(2)
	}
	return map[string]interface{}{
		"id":              p.ID,
		"user_id":         p.UserID,
		"name":            p.Name,
		"description":     p.Description,
		"cash_balance":    p.CashBalance.StringFixed(2),
		"risk_tolerance":  p.RiskTolerance,
		"investment_goal": p.InvestmentGoal,
		"diversification": diversification,
		"created_at":      p.CreatedAt,
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
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientHoldings):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrQuoteUnavailable):
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]interface{}{"error": err.Error()})
}
