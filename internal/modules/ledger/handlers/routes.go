package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the transactions routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.HandleRecord)    // Record a buy or sell
		r.Get("/", h.HandleList)       // Transaction history
		r.Get("/{id}", h.HandleGet)    // Single transaction
	})

	// Administrative overrides, routed separately from the trading paths
	r.Route("/admin/transactions", func(r chi.Router) {
		r.Put("/{id}", h.HandleAdminAmend)      // Amend in place, no invariant checks
		r.Delete("/{id}", h.HandleAdminRemove)  // Remove record, cash untouched
	})
}
