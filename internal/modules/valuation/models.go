package valuation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is the valuation of a single held position. Monetary fields carry full
// precision; the HTTP layer rounds for display. When PriceUnavailable is set,
// the price-derived fields are zero and the row is excluded from the report
// totals and the top-holdings ranking.
type Row struct {
	AsOf             time.Time       `json:"as_of"`
	Ticker           string          `json:"ticker"`
	Name             string          `json:"name"`
	AverageBuyPrice  decimal.Decimal `json:"average_buy_price"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	Value            decimal.Decimal `json:"value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	Shares           int64           `json:"shares"`
	PriceUnavailable bool            `json:"price_unavailable"`
}

// TopHolding is one entry of the top-five ranking by position value.
type TopHolding struct {
	Ticker         string          `json:"ticker"`
	Value          decimal.Decimal `json:"value"`
	PercentOfTotal decimal.Decimal `json:"percent_of_total"`
}

// Report is a point-in-time valuation of a portfolio's positions.
type Report struct {
	PricesAsOf         time.Time       `json:"prices_as_of"`
	Rows               []Row           `json:"rows"`
	TopHoldings        []TopHolding    `json:"top_holdings"`
	TotalValue         decimal.Decimal `json:"total_value"`
	TotalUnrealizedPnL decimal.Decimal `json:"total_unrealized_pnl"`
	PortfolioID        int64           `json:"portfolio_id"`
}
