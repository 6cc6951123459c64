package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/domain"
)

type fakePositions struct {
	holdings map[string]int64
	names    map[string]string
	avgBuy   map[string]string
}

func (f *fakePositions) HoldingsByTicker(portfolioID int64) (map[string]int64, error) {
	return f.holdings, nil
}

func (f *fakePositions) NamesByTicker(portfolioID int64) (map[string]string, error) {
	return f.names, nil
}

func (f *fakePositions) AverageBuyPrice(portfolioID int64, ticker string) (decimal.Decimal, error) {
	if s, ok := f.avgBuy[ticker]; ok {
		return decimal.RequireFromString(s), nil
	}
	return decimal.Zero, nil
}

// fakePriceProvider maps tickers to prices; absent tickers are unavailable.
type fakePriceProvider struct {
	prices map[string]string
	asOf   map[string]time.Time
}

func (f *fakePriceProvider) GetPrice(ctx context.Context, ticker string, now time.Time) (domain.Quote, error) {
	s, ok := f.prices[ticker]
	if !ok {
		return domain.Quote{}, domain.ErrQuoteUnavailable
	}
	asOf := now
	if t, ok := f.asOf[ticker]; ok {
		asOf = t
	}
	return domain.Quote{Ticker: ticker, Price: decimal.RequireFromString(s), AsOf: asOf}, nil
}

func newValuationService(positions *fakePositions, prices *fakePriceProvider) *Service {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewService(positions, prices, log)
}

func TestComputeValuation_ValuesAndRanksHoldings(t *testing.T) {
	positions := &fakePositions{
		holdings: map[string]int64{"ACME": 10, "BETA": 30, "GONE": 0},
		names:    map[string]string{"ACME": "Acme Corp", "BETA": "Beta Inc"},
		avgBuy:   map[string]string{"ACME": "80", "BETA": "90"},
	}
	prices := &fakePriceProvider{prices: map[string]string{"ACME": "100", "BETA": "100"}}
	svc := newValuationService(positions, prices)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	report, err := svc.ComputeValuation(context.Background(), 1, now)
	require.NoError(t, err)

	require.Len(t, report.Rows, 2, "zero holdings excluded")

	// Rows are ordered by ticker
	acme, beta := report.Rows[0], report.Rows[1]
	assert.Equal(t, "ACME", acme.Ticker)
	assert.Equal(t, "Acme Corp", acme.Name)
	assert.True(t, acme.Value.Equal(decimal.RequireFromString("1000")))
	assert.True(t, acme.UnrealizedPnL.Equal(decimal.RequireFromString("200")))

	assert.Equal(t, "BETA", beta.Ticker)
	assert.True(t, beta.Value.Equal(decimal.RequireFromString("3000")))
	assert.True(t, beta.UnrealizedPnL.Equal(decimal.RequireFromString("300")))

	assert.True(t, report.TotalValue.Equal(decimal.RequireFromString("4000")))
	assert.True(t, report.TotalUnrealizedPnL.Equal(decimal.RequireFromString("500")))

	// Ranked by value: BETA 75%, ACME 25%
	require.Len(t, report.TopHoldings, 2)
	assert.Equal(t, "BETA", report.TopHoldings[0].Ticker)
	assert.Equal(t, "75.00", report.TopHoldings[0].PercentOfTotal.StringFixed(2))
	assert.Equal(t, "ACME", report.TopHoldings[1].Ticker)
	assert.Equal(t, "25.00", report.TopHoldings[1].PercentOfTotal.StringFixed(2))

	assert.True(t, report.PricesAsOf.Equal(now))
}

func TestComputeValuation_UnavailablePriceDegradesRow(t *testing.T) {
	positions := &fakePositions{
		holdings: map[string]int64{"ACME": 10, "DARK": 5},
		names:    map[string]string{"ACME": "Acme Corp", "DARK": "Dark Pool"},
		avgBuy:   map[string]string{"ACME": "50", "DARK": "10"},
	}
	prices := &fakePriceProvider{prices: map[string]string{"ACME": "60"}}
	svc := newValuationService(positions, prices)

	report, err := svc.ComputeValuation(context.Background(), 1, time.Now().UTC())
	require.NoError(t, err, "one unpriceable ticker must not fail the report")

	require.Len(t, report.Rows, 2)
	var dark Row
	for _, row := range report.Rows {
		if row.Ticker == "DARK" {
			dark = row
		}
	}
	assert.True(t, dark.PriceUnavailable)
	assert.True(t, dark.Value.IsZero())

	// Totals and ranking cover priced rows only
	assert.True(t, report.TotalValue.Equal(decimal.RequireFromString("600")))
	require.Len(t, report.TopHoldings, 1)
	assert.Equal(t, "ACME", report.TopHoldings[0].Ticker)
	assert.Equal(t, "100.00", report.TopHoldings[0].PercentOfTotal.StringFixed(2))
}

func TestComputeValuation_EmptyPortfolio(t *testing.T) {
	positions := &fakePositions{holdings: map[string]int64{}}
	prices := &fakePriceProvider{prices: map[string]string{}}
	svc := newValuationService(positions, prices)

	report, err := svc.ComputeValuation(context.Background(), 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.TopHoldings)
	assert.True(t, report.TotalValue.IsZero())
	assert.True(t, report.TotalUnrealizedPnL.IsZero())
}

func TestComputeValuation_TopFiveCapAndTieBreak(t *testing.T) {
	holdings := map[string]int64{}
	names := map[string]string{}
	prices := map[string]string{}
	// Seven positions all worth 100 apiece except two larger ones
	for _, ticker := range []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF", "GGG"} {
		holdings[ticker] = 1
		names[ticker] = ticker
		prices[ticker] = "100"
	}
	prices["GGG"] = "500"
	prices["FFF"] = "300"

	positions := &fakePositions{holdings: holdings, names: names, avgBuy: map[string]string{}}
	svc := newValuationService(positions, &fakePriceProvider{prices: prices})

	report, err := svc.ComputeValuation(context.Background(), 1, time.Now().UTC())
	require.NoError(t, err)

	require.Len(t, report.TopHoldings, 5)
	got := make([]string, 0, 5)
	for _, holding := range report.TopHoldings {
		got = append(got, holding.Ticker)
	}
	// Largest first, then equal values in ticker order
	assert.Equal(t, []string{"GGG", "FFF", "AAA", "BBB", "CCC"}, got)
}

func TestComputeValuation_ZeroPricedHoldingStillRanked(t *testing.T) {
	positions := &fakePositions{
		holdings: map[string]int64{"ACME": 3},
		names:    map[string]string{"ACME": "Acme Corp"},
		avgBuy:   map[string]string{"ACME": "1"},
	}
	prices := &fakePriceProvider{prices: map[string]string{"ACME": "0"}}
	svc := newValuationService(positions, prices)

	report, err := svc.ComputeValuation(context.Background(), 1, time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, report.TotalValue.IsZero())
	require.Len(t, report.TopHoldings, 1)
	// PercentOfTotal is defined as zero when the total is zero
	assert.True(t, report.TopHoldings[0].PercentOfTotal.IsZero())
}
