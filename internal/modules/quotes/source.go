// Package quotes provides quote source clients and the shared price cache
// with its freshness policy.
package quotes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is the source-level failure: network error and unknown
// ticker both map to it. The cache service decides whether a stale entry can
// still serve the read.
var ErrUnavailable = errors.New("quote source unavailable")

// Source fetches the current price for a ticker. Implementations must
// respect context cancellation and return ErrUnavailable (possibly wrapped)
// on any failure.
type Source interface {
	Fetch(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// ChainSource tries each source in order and returns the first success.
// Used to put the Alpha Vantage client behind the Yahoo client.
type ChainSource struct {
	sources []Source
	log     zerolog.Logger
}

// NewChainSource creates a chained quote source. Nil entries are skipped.
func NewChainSource(log zerolog.Logger, sources ...Source) *ChainSource {
	var filtered []Source
	for _, s := range sources {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &ChainSource{
		sources: filtered,
		log:     log.With().Str("component", "quote_chain").Logger(),
	}
}

// Fetch returns the first successful price in chain order.
func (c *ChainSource) Fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if len(c.sources) == 0 {
		return decimal.Zero, fmt.Errorf("no quote sources configured: %w", ErrUnavailable)
	}

	var lastErr error
	for _, source := range c.sources {
		price, err := source.Fetch(ctx, ticker)
		if err == nil {
			return price, nil
		}
		lastErr = err
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("Quote source failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}

	if errors.Is(lastErr, ErrUnavailable) {
		return decimal.Zero, lastErr
	}
	return decimal.Zero, fmt.Errorf("%v: %w", lastErr, ErrUnavailable)
}
