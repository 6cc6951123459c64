package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the portfolio routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleGet)
		r.Get("/exists", h.HandleExists)
		r.Put("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
	})

	// Administrative override, routed separately from the account paths
	r.Put("/admin/portfolios/{id}/cash", h.HandleAdminOverrideCash)
}
