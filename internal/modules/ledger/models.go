// Package ledger provides the append-only transaction ledger and the
// derivations computed over it (owned shares, average cost basis).
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// Transaction is a single buy or sell record against a portfolio.
// Immutable once created: the trading path only appends. Amend and Remove
// exist as administrative overrides and bypass business-rule validation.
type Transaction struct {
	CreatedAt     time.Time              `json:"created_at"`
	Ticker        string                 `json:"ticker"`
	Name          string                 `json:"name"`
	Kind          domain.TransactionKind `json:"kind"`
	Note          string                 `json:"note,omitempty"`
	Reference     string                 `json:"reference"`
	PricePerShare decimal.Decimal        `json:"price_per_share"`
	Total         decimal.Decimal        `json:"total"`
	ID            int64                  `json:"id"`
	PortfolioID   int64                  `json:"portfolio_id"`
	Quantity      int64                  `json:"quantity"`
}

// Validate checks the invariants enforced at creation time.
// Administrative amendments do not re-run this.
func (t Transaction) Validate() error {
	if _, err := domain.ValidateTicker(t.Ticker); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return domain.Validationf("invalid transaction kind %q", t.Kind)
	}
	if t.Quantity < 1 {
		return domain.Validationf("quantity must be at least 1, got %d", t.Quantity)
	}
	if t.PricePerShare.IsNegative() {
		return domain.Validationf("price per share must not be negative, got %s", t.PricePerShare)
	}
	return nil
}

// RecordInput carries the caller-supplied fields for recording a transaction.
// PricePerShare is optional: when nil the current cached/live price is used
// as the trade price.
type RecordInput struct {
	Ticker        string                 `json:"ticker"`
	Name          string                 `json:"name"`
	Kind          domain.TransactionKind `json:"kind"`
	Quantity      int64                  `json:"quantity"`
	PricePerShare *decimal.Decimal       `json:"price_per_share"`
	Note          string                 `json:"note"`
}

// AmendInput carries the administratively amendable fields. Nil pointers
// leave the stored value untouched. The stored total is deliberately not
// recomputed from quantity and price: amendments may desynchronize it.
type AmendInput struct {
	Ticker        *string                 `json:"ticker"`
	Name          *string                 `json:"name"`
	Kind          *domain.TransactionKind `json:"kind"`
	Quantity      *int64                  `json:"quantity"`
	PricePerShare *decimal.Decimal        `json:"price_per_share"`
	Note          *string                 `json:"note"`
}
