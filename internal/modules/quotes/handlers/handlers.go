// Package handlers provides HTTP handlers for price lookups.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/domain"
	"github.com/finsight/finsight/internal/modules/quotes"
)

// Handlers contains HTTP handlers for the quotes API.
type Handlers struct {
	service *quotes.Service
	log     zerolog.Logger
}

// New creates a new quotes handlers instance.
func New(service *quotes.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "quotes").Logger(),
	}
}

// HandleGetPrice returns the price for a ticker, served from the cache when
// fresh and fetched otherwise.
// GET /api/quotes/{ticker}
func (h *Handlers) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	quote, err := h.service.GetPrice(r.Context(), ticker, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			h.log.Warn().Err(err).Str("ticker", ticker).Msg("Price lookup failed")
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": quote.Ticker,
		"price":  quote.Price.StringFixed(2),
		"as_of":  quote.AsOf,
	})
}

// RegisterRoutes registers the quotes routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/quotes/{ticker}", h.HandleGetPrice)
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
