package domain

import (
	"errors"
	"fmt"
)

// Recoverable, user-facing error kinds. Operations reject with one of these;
// they are matched with errors.Is and mapped to HTTP responses at the edge.
var (
	// ErrInsufficientFunds - a Buy whose total exceeds the portfolio cash balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings - a Sell that exceeds owned shares (or owns none)
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrQuoteUnavailable - no price obtainable for a ticker, neither live nor cached
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrNotFound - portfolio or transaction lookup miss
	ErrNotFound = errors.New("not found")

	// ErrValidation - malformed quantity/price/ticker input
	ErrValidation = errors.New("validation failed")
)

// Validationf wraps ErrValidation with a specific reason so callers can both
// match the kind and surface the detail.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}
