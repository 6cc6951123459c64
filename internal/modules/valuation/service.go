package valuation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// PositionReader supplies the derived holdings data the engine values.
// The ledger service satisfies it.
type PositionReader interface {
	HoldingsByTicker(portfolioID int64) (map[string]int64, error)
	NamesByTicker(portfolioID int64) (map[string]string, error)
	AverageBuyPrice(portfolioID int64, ticker string) (decimal.Decimal, error)
}

// topHoldingsLimit caps the ranked holdings list in a report.
const topHoldingsLimit = 5

// Service computes portfolio valuation reports.
type Service struct {
	positions PositionReader
	prices    domain.PriceProvider
	log       zerolog.Logger
}

// NewService creates a new valuation service.
func NewService(positions PositionReader, prices domain.PriceProvider, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		prices:    prices,
		log:       log.With().Str("service", "valuation").Logger(),
	}
}

// ComputeValuation values every position with a positive net share count.
// A ticker whose price cannot be resolved (no live quote and nothing cached)
// degrades to an unavailable row rather than failing the report; such rows
// do not contribute to the totals or the top-holdings ranking. Rows are
// ordered by ticker for stable output.
func (s *Service) ComputeValuation(ctx context.Context, portfolioID int64, now time.Time) (*Report, error) {
	holdings, err := s.positions.HoldingsByTicker(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}
	names, err := s.positions.NamesByTicker(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticker names: %w", err)
	}

	tickers := make([]string, 0, len(holdings))
	for ticker, shares := range holdings {
		if shares > 0 {
			tickers = append(tickers, ticker)
		}
	}
	sort.Strings(tickers)

	report := &Report{
		PortfolioID:        portfolioID,
		Rows:               make([]Row, 0, len(tickers)),
		TopHoldings:        []TopHolding{},
		TotalValue:         decimal.Zero,
		TotalUnrealizedPnL: decimal.Zero,
	}

	for _, ticker := range tickers {
		shares := holdings[ticker]

		avgBuy, err := s.positions.AverageBuyPrice(portfolioID, ticker)
		if err != nil {
			return nil, fmt.Errorf("failed to derive average buy price for %s: %w", ticker, err)
		}

		row := Row{
			Ticker:          ticker,
			Name:            names[ticker],
			Shares:          shares,
			AverageBuyPrice: avgBuy,
		}

		quote, err := s.prices.GetPrice(ctx, ticker, now)
		if err != nil {
			if !errors.Is(err, domain.ErrQuoteUnavailable) {
				return nil, fmt.Errorf("failed to price %s: %w", ticker, err)
			}
			s.log.Warn().Str("ticker", ticker).Int64("portfolio_id", portfolioID).
				Msg("No price available, degrading row")
			row.PriceUnavailable = true
			report.Rows = append(report.Rows, row)
			continue
		}

		sharesDec := decimal.NewFromInt(shares)
		row.CurrentPrice = quote.Price
		row.Value = quote.Price.Mul(sharesDec)
		row.UnrealizedPnL = quote.Price.Sub(avgBuy).Mul(sharesDec)
		row.AsOf = quote.AsOf

		report.TotalValue = report.TotalValue.Add(row.Value)
		report.TotalUnrealizedPnL = report.TotalUnrealizedPnL.Add(row.UnrealizedPnL)
		if quote.AsOf.After(report.PricesAsOf) {
			report.PricesAsOf = quote.AsOf
		}

		report.Rows = append(report.Rows, row)
	}

	report.TopHoldings = rankTopHoldings(report.Rows, report.TotalValue)

	return report, nil
}

// rankTopHoldings orders priced rows by value descending, ties broken by
// ticker ascending, and keeps the first five. Percentages are zero when the
// total is zero.
func rankTopHoldings(rows []Row, totalValue decimal.Decimal) []TopHolding {
	priced := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !row.PriceUnavailable {
			priced = append(priced, row)
		}
	}

	sort.Slice(priced, func(i, j int) bool {
		cmp := priced[i].Value.Cmp(priced[j].Value)
		if cmp != 0 {
			return cmp > 0
		}
		return priced[i].Ticker < priced[j].Ticker
	})

	if len(priced) > topHoldingsLimit {
		priced = priced[:topHoldingsLimit]
	}

	hundred := decimal.NewFromInt(100)
	top := make([]TopHolding, 0, len(priced))
	for _, row := range priced {
		percent := decimal.Zero
		if totalValue.IsPositive() {
			percent = row.Value.Mul(hundred).Div(totalValue)
		}
		top = append(top, TopHolding{
			Ticker:         row.Ticker,
			Value:          row.Value,
			PercentOfTotal: percent,
		})
	}
	return top
}
