// Package domain provides core domain models and types.
package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind represents the side of a ledger transaction
type TransactionKind string

const (
	KindBuy  TransactionKind = "BUY"
	KindSell TransactionKind = "SELL"
)

// Valid reports whether the kind is one of the two trading sides.
func (k TransactionKind) Valid() bool {
	return k == KindBuy || k == KindSell
}

// RiskTolerance represents a portfolio's configured risk appetite
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "LOW"
	RiskMedium RiskTolerance = "MEDIUM"
	RiskHigh   RiskTolerance = "HIGH"
)

// Valid reports whether the risk tolerance is a known level.
func (r RiskTolerance) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Quote is a price observation for a ticker, either live or served from cache.
type Quote struct {
	Ticker string          `json:"ticker"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// tickerPattern matches uppercase symbols after normalization: letters,
// digits, dots and dashes (e.g. "BRK.B", "ACME").
var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker normalizes the symbol and rejects anything that is not an
// uppercase ticker of at most 10 characters.
func ValidateTicker(ticker string) (string, error) {
	normalized := NormalizeTicker(ticker)
	if !tickerPattern.MatchString(normalized) {
		return "", Validationf("invalid ticker %q", ticker)
	}
	return normalized, nil
}
