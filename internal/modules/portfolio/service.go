package portfolio

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// HoldingsReader exposes the per-ticker net share counts a portfolio holds.
// The ledger repository satisfies it.
type HoldingsReader interface {
	HoldingsByTicker(portfolioID int64) (map[string]int64, error)
}

// TransactionPurger removes all ledger rows for a portfolio. Used when a
// portfolio is deleted.
type TransactionPurger interface {
	DeleteByPortfolio(portfolioID int64) (int64, error)
}

// Service owns portfolio lifecycle, the cash balance rules, and the cached
// diversification breakdown.
type Service struct {
	repo     *Repository
	holdings HoldingsReader
	purger   TransactionPurger
	mu       sync.Mutex
	log      zerolog.Logger
}

// NewService creates a new portfolio service.
func NewService(repo *Repository, holdings HoldingsReader, purger TransactionPurger, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		holdings: holdings,
		purger:   purger,
		log:      log.With().Str("service", "portfolio").Logger(),
	}
}

// Create makes the user's portfolio. A user holds at most one: an existing
// portfolio is a validation failure, checked with an explicit lookup.
func (s *Service) Create(userID int64, in CreateInput) (*Portfolio, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Validationf("user %d already has a portfolio", userID)
	}

	return s.repo.Create(userID, in)
}

// GetByUser returns the user's portfolio or domain.ErrNotFound.
func (s *Service) GetByUser(userID int64) (*Portfolio, error) {
	p, err := s.repo.GetByUser(userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Exists reports whether the user has a portfolio without fetching it for
// callers that only need the boolean.
func (s *Service) Exists(userID int64) (bool, error) {
	p, err := s.repo.GetByUser(userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// Get returns a portfolio by ID or domain.ErrNotFound.
func (s *Service) Get(portfolioID int64) (*Portfolio, error) {
	p, err := s.repo.GetByID(portfolioID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// Update edits profile fields. Cash is not reachable from here.
func (s *Service) Update(portfolioID int64, in UpdateInput) (*Portfolio, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(portfolioID, in); err != nil {
		return nil, err
	}
	return s.Get(portfolioID)
}

// Delete removes a portfolio and purges its transaction history.
func (s *Service) Delete(portfolioID int64) error {
	if _, err := s.Get(portfolioID); err != nil {
		return err
	}

	removed, err := s.purger.DeleteByPortfolio(portfolioID)
	if err != nil {
		return fmt.Errorf("failed to purge transactions for portfolio %d: %w", portfolioID, err)
	}
	if removed > 0 {
		s.log.Info().Int64("portfolio_id", portfolioID).Int64("transactions", removed).
			Msg("Purged transaction history")
	}

	return s.repo.Delete(portfolioID)
}

// GetCashBalance returns the current cash balance.
func (s *Service) GetCashBalance(portfolioID int64) (decimal.Decimal, error) {
	p, err := s.Get(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.CashBalance, nil
}

// AdjustCashBalance applies a signed delta to the cash balance. The
// read-add-write runs under the service mutex so concurrent adjustments
// cannot lose updates. A negative delta may not take the balance below zero.
func (s *Service) AdjustCashBalance(portfolioID int64, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Get(portfolioID)
	if err != nil {
		return err
	}

	next := p.CashBalance.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("%w: balance %s cannot absorb %s",
			domain.ErrInsufficientFunds, p.CashBalance.String(), delta.String())
	}
	return s.repo.SetCashBalance(portfolioID, next)
}

// AdminOverrideCash overwrites the cash balance directly. No invariant
// checks: negative values go through. Exists only for administrative
// correction and is routed separately from the trading paths.
func (s *Service) AdminOverrideCash(portfolioID int64, amount decimal.Decimal) (*Portfolio, error) {
	if _, err := s.Get(portfolioID); err != nil {
		return nil, err
	}
	if err := s.repo.SetCashBalance(portfolioID, amount); err != nil {
		return nil, err
	}
	s.log.Warn().Int64("portfolio_id", portfolioID).Str("amount", amount.String()).
		Msg("Cash balance overridden by admin")
	return s.Get(portfolioID)
}

// RecomputeDiversification rebuilds the share-count weight map from the
// ledger and stores it on the portfolio row. Weights are percentages of total
// shares held; tickers with zero or negative net shares are excluded. The
// stored map is a cache: the live positions remain the source of truth.
func (s *Service) RecomputeDiversification(portfolioID int64) error {
	holdings, err := s.holdings.HoldingsByTicker(portfolioID)
	if err != nil {
		return fmt.Errorf("failed to load holdings for portfolio %d: %w", portfolioID, err)
	}

	total := int64(0)
	for _, shares := range holdings {
		if shares > 0 {
			total += shares
		}
	}

	weights := map[string]decimal.Decimal{}
	if total > 0 {
		hundred := decimal.NewFromInt(100)
		totalDec := decimal.NewFromInt(total)
		for ticker, shares := range holdings {
			if shares <= 0 {
				continue
			}
			weights[ticker] = decimal.NewFromInt(shares).Mul(hundred).Div(totalDec)
		}
	}

	return s.repo.SetDiversification(portfolioID, weights)
}
