package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageClient fetches current prices from the Alpha Vantage
// GLOBAL_QUOTE endpoint. Fallback quote source behind Yahoo; only active
// when an API key is configured.
type AlphaVantageClient struct {
	client *resty.Client
	apiKey string
	log    zerolog.Logger
}

// globalQuoteResponse mirrors the GLOBAL_QUOTE payload. Alpha Vantage
// signals rate limiting with a "Note" or "Information" body instead of an
// HTTP error status.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// NewAlphaVantageClient creates a new Alpha Vantage quote client.
func NewAlphaVantageClient(apiKey string, log zerolog.Logger) *AlphaVantageClient {
	client := resty.New().
		SetBaseURL(alphaVantageBaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(1)

	return &AlphaVantageClient{
		client: client,
		apiKey: apiKey,
		log:    log.With().Str("client", "alphavantage").Logger(),
	}
}

// Fetch returns the latest global quote price for the ticker.
func (c *AlphaVantageClient) Fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return decimal.Zero, fmt.Errorf("alphavantage api key not configured: %w", ErrUnavailable)
	}

	var payload globalQuoteResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   ticker,
			"apikey":   c.apiKey,
		}).
		SetResult(&payload).
		Get("/query")
	if err != nil {
		return decimal.Zero, fmt.Errorf("alphavantage quote for %s: %v: %w", ticker, err, ErrUnavailable)
	}
	if resp.StatusCode() != 200 {
		return decimal.Zero, fmt.Errorf("alphavantage http %d for %s: %w", resp.StatusCode(), ticker, ErrUnavailable)
	}

	if payload.Note != "" || payload.Information != "" {
		c.log.Warn().Str("ticker", ticker).Msg("Alpha Vantage rate limited")
		return decimal.Zero, fmt.Errorf("alphavantage rate limited for %s: %w", ticker, ErrUnavailable)
	}

	if payload.GlobalQuote.Price == "" {
		return decimal.Zero, fmt.Errorf("alphavantage returned no price for %s: %w", ticker, ErrUnavailable)
	}

	price, err := decimal.NewFromString(payload.GlobalQuote.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("alphavantage returned invalid price %q for %s: %w",
			payload.GlobalQuote.Price, ticker, ErrUnavailable)
	}

	return price, nil
}
