package domain

import (
	"context"
	"time"
)

// PriceProvider supplies current prices with the cache-first policy applied.
// Implemented by the quotes service; consumed by ledger and valuation to
// avoid direct module dependencies.
type PriceProvider interface {
	// GetPrice returns the freshest available quote for the ticker relative
	// to now. Returns ErrQuoteUnavailable when no live or cached price exists.
	GetPrice(ctx context.Context, ticker string, now time.Time) (Quote, error)
}

// DiversificationRecomputer recalculates and stores a portfolio's cached
// diversification map after the ledger changes. Implemented by the portfolio
// service; called synchronously at the end of record/amend/remove.
type DiversificationRecomputer interface {
	RecomputeDiversification(portfolioID int64) error
}
