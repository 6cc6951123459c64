// Package handlers provides HTTP handlers for the transaction ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/domain"
	"github.com/finsight/finsight/internal/modules/ledger"
	"github.com/finsight/finsight/internal/modules/portfolio"
)

// Handlers contains HTTP handlers for the transactions API.
type Handlers struct {
	ledgerService    *ledger.Service
	portfolioService *portfolio.Service
	log              zerolog.Logger
}

// New creates a new ledger handlers instance.
func New(ledgerService *ledger.Service, portfolioService *portfolio.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		ledgerService:    ledgerService,
		portfolioService: portfolioService,
		log:              log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleRecord appends a buy or sell transaction to the caller's portfolio.
// POST /api/transactions
func (h *Handlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	p, ok := h.callerPortfolio(w, r)
	if !ok {
		return
	}

	var input ledger.RecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	t, err := h.ledgerService.Record(r.Context(), p.ID, input)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to record transaction")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, transactionDTO(t))
}

// HandleList returns the caller's transaction history, most recent first.
// GET /api/transactions?limit=N
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	p, ok := h.callerPortfolio(w, r)
	if !ok {
		return
	}

	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	transactions, err := h.ledgerService.List(p.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("portfolio_id", p.ID).Msg("Failed to list transactions")
		respondError(w, err)
		return
	}

	dtos := make([]map[string]interface{}, 0, len(transactions))
	for _, t := range transactions {
		dtos = append(dtos, transactionDTO(t))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"transactions": dtos})
}

// HandleGet returns one transaction, if it belongs to the caller's portfolio.
// GET /api/transactions/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.callerPortfolio(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("invalid transaction id"))
		return
	}

	t, err := h.ledgerService.Get(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if t.PortfolioID != p.ID {
		respondError(w, domain.ErrNotFound)
		return
	}

	respondJSON(w, http.StatusOK, transactionDTO(t))
}

// HandleAdminAmend edits a stored transaction in place. Administrative
// override: no business-rule validation, no cash adjustment, and the stored
// total is left as-is even when price or quantity change.
// PUT /api/admin/transactions/{id}
func (h *Handlers) HandleAdminAmend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("invalid transaction id"))
		return
	}

	var input ledger.AmendInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, domain.Validationf("invalid request body: %v", err))
		return
	}

	t, err := h.ledgerService.Amend(id, input)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to amend transaction")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, transactionDTO(t))
}

// HandleAdminRemove deletes a transaction record. Administrative override:
// cash already moved by the original trade is not restored.
// DELETE /api/admin/transactions/{id}
func (h *Handlers) HandleAdminRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("invalid transaction id"))
		return
	}

	if err := h.ledgerService.Remove(id); err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to remove transaction")
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "removed"})
}

// callerPortfolio resolves the caller's portfolio from the X-User-ID header.
// Writes the error response itself when resolution fails.
func (h *Handlers) callerPortfolio(w http.ResponseWriter, r *http.Request) (*portfolio.Portfolio, bool) {
	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil {
		respondError(w, domain.Validationf("missing or invalid X-User-ID header"))
		return nil, false
	}

	p, err := h.portfolioService.GetByUser(userID)
	if err != nil {
		respondError(w, err)
		return nil, false
	}
	return p, true
}

func transactionDTO(t ledger.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"id":              t.ID,
		"portfolio_id":    t.PortfolioID,
		"ticker":          t.Ticker,
		"name":            t.Name,
		"kind":            t.Kind,
		"quantity":        t.Quantity,
		"price_per_share": t.PricePerShare.StringFixed(2),
		"total":           t.Total.StringFixed(2),
		"note":            t.Note,
		"reference":       t.Reference,
		"created_at":      t.CreatedAt,
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
