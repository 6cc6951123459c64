package quotes

import (
	"context"
	"fmt"

	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// YahooClient fetches current prices from Yahoo Finance. Primary quote
// source.
type YahooClient struct {
	log zerolog.Logger
}

// NewYahooClient creates a new Yahoo Finance quote client.
func NewYahooClient(log zerolog.Logger) *YahooClient {
	return &YahooClient{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// Fetch returns the regular market price for the ticker. The underlying
// library call is not context-aware, so it runs in a goroutine and the
// result is discarded if the context expires first.
func (c *YahooClient) Fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	type result struct {
		price decimal.Decimal
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		q, err := quote.Get(ticker)
		if err != nil {
			ch <- result{err: fmt.Errorf("yahoo quote for %s: %v: %w", ticker, err, ErrUnavailable)}
			return
		}
		if q == nil || q.RegularMarketPrice <= 0 {
			ch <- result{err: fmt.Errorf("yahoo returned no price for %s: %w", ticker, ErrUnavailable)}
			return
		}
		ch <- result{price: decimal.NewFromFloat(q.RegularMarketPrice)}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("yahoo quote for %s: %v: %w", ticker, ctx.Err(), ErrUnavailable)
	case res := <-ch:
		if res.err != nil {
			return decimal.Zero, res.err
		}
		return res.price, nil
	}
}
