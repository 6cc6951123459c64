package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// PortfolioAccount defines the cash-balance operations the ledger needs.
// Implemented by the portfolio service; declared here to avoid a module cycle.
type PortfolioAccount interface {
	// GetCashBalance returns the current cash balance.
	// Returns domain.ErrNotFound when the portfolio does not exist.
	GetCashBalance(portfolioID int64) (decimal.Decimal, error)
	// AdjustCashBalance applies a signed delta to the cash balance.
	AdjustCashBalance(portfolioID int64, delta decimal.Decimal) error
}

// Service orchestrates transaction recording and the pure ledger derivations.
//
// Recording is the one concurrency-critical path: the funds/holdings check,
// the ledger append, and the cash adjustment for a portfolio must not
// interleave across concurrent requests. A per-portfolio mutex serializes
// the whole unit so two concurrent buys cannot both pass the funds check
// against a stale balance.
type Service struct {
	repo       *Repository
	account    PortfolioAccount
	prices     domain.PriceProvider
	recomputer domain.DiversificationRecomputer
	locks      *portfolioLocks
	log        zerolog.Logger
}

// NewService creates a new ledger service.
func NewService(
	repo *Repository,
	account PortfolioAccount,
	prices domain.PriceProvider,
	recomputer domain.DiversificationRecomputer,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		account:    account,
		prices:     prices,
		recomputer: recomputer,
		locks:      newPortfolioLocks(),
		log:        log.With().Str("service", "ledger").Logger(),
	}
}

// Record validates and appends a buy/sell transaction, adjusts the portfolio
// cash balance, and recomputes the cached diversification map.
//
// Sell: rejected with ErrInsufficientHoldings when the portfolio owns fewer
// shares than requested (or none). Buy: rejected with ErrInsufficientFunds
// when quantity x price exceeds the cash balance.
//
// When the input carries no price, the trade price is taken from the price
// cache (refreshing per the freshness policy).
func (s *Service) Record(ctx context.Context, portfolioID int64, input RecordInput) (Transaction, error) {
	ticker, err := domain.ValidateTicker(input.Ticker)
	if err != nil {
		return Transaction{}, err
	}
	if !input.Kind.Valid() {
		return Transaction{}, domain.Validationf("invalid transaction kind %q", input.Kind)
	}
	if input.Quantity < 1 {
		return Transaction{}, domain.Validationf("quantity must be at least 1, got %d", input.Quantity)
	}
	if input.PricePerShare != nil && input.PricePerShare.IsNegative() {
		return Transaction{}, domain.Validationf("price per share must not be negative, got %s", input.PricePerShare)
	}

	// Resolve the trade price before taking the portfolio lock: a quote
	// fetch may block on the network and must not serialize other
	// portfolios' unrelated recordings behind it.
	var price decimal.Decimal
	if input.PricePerShare != nil {
		price = *input.PricePerShare
	} else {
		quote, err := s.prices.GetPrice(ctx, ticker, time.Now())
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to resolve trade price for %s: %w", ticker, err)
		}
		price = quote.Price
	}

	unlock := s.locks.lock(portfolioID)
	defer unlock()

	total := price.Mul(decimal.NewFromInt(input.Quantity))

	switch input.Kind {
	case domain.KindSell:
		owned, err := s.repo.OwnedShares(portfolioID, ticker)
		if err != nil {
			return Transaction{}, err
		}
		if owned <= 0 || owned < input.Quantity {
			return Transaction{}, fmt.Errorf("sell %d of %s with %d owned: %w",
				input.Quantity, ticker, owned, domain.ErrInsufficientHoldings)
		}

	case domain.KindBuy:
		cash, err := s.account.GetCashBalance(portfolioID)
		if err != nil {
			return Transaction{}, err
		}
		if total.GreaterThan(cash) {
			return Transaction{}, fmt.Errorf("buy total %s exceeds cash balance %s: %w",
				total, cash, domain.ErrInsufficientFunds)
		}
	}

	created, err := s.repo.Create(Transaction{
		PortfolioID:   portfolioID,
		Ticker:        ticker,
		Name:          input.Name,
		Kind:          input.Kind,
		Quantity:      input.Quantity,
		PricePerShare: price,
		Total:         total,
		Note:          input.Note,
		Reference:     uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return Transaction{}, err
	}

	delta := total
	if input.Kind == domain.KindBuy {
		delta = total.Neg()
	}
	if err := s.account.AdjustCashBalance(portfolioID, delta); err != nil {
		// The ledger append and the cash adjustment live in different
		// databases; compensate by removing the appended row so the
		// caller observes the pair as one unit.
		if delErr := s.repo.Delete(created.ID); delErr != nil {
			s.log.Error().Err(delErr).Int64("id", created.ID).
				Msg("Failed to compensate ledger append after cash adjustment failure")
		}
		return Transaction{}, fmt.Errorf("failed to adjust cash balance: %w", err)
	}

	s.recomputeDiversification(portfolioID)

	return created, nil
}

// OwnedShares derives net holdings for the ticker over the full history.
func (s *Service) OwnedShares(portfolioID int64, ticker string) (int64, error) {
	normalized, err := domain.ValidateTicker(ticker)
	if err != nil {
		return 0, err
	}
	return s.repo.OwnedShares(portfolioID, normalized)
}

// HoldingsByTicker derives net holdings for every ticker the portfolio has
// traded, including tickers that net to zero or negative.
func (s *Service) HoldingsByTicker(portfolioID int64) (map[string]int64, error) {
	return s.repo.HoldingsByTicker(portfolioID)
}

// NamesByTicker maps each traded ticker to its most recent display name.
func (s *Service) NamesByTicker(portfolioID int64) (map[string]string, error) {
	return s.repo.NamesByTicker(portfolioID)
}

// AverageBuyPrice derives the weighted average purchase price across all buy
// transactions for the ticker, at full precision. Zero when there are no
// buys: never a division error.
//
// The average is computed over the complete history, so a position that was
// fully closed and later reopened retains its original cost bias.
func (s *Service) AverageBuyPrice(portfolioID int64, ticker string) (decimal.Decimal, error) {
	normalized, err := domain.ValidateTicker(ticker)
	if err != nil {
		return decimal.Zero, err
	}

	totalCost, totalQuantity, err := s.repo.BuyAggregates(portfolioID, normalized)
	if err != nil {
		return decimal.Zero, err
	}
	if totalQuantity == 0 {
		return decimal.Zero, nil
	}

	return totalCost.Div(decimal.NewFromInt(totalQuantity)), nil
}

// List returns the portfolio's transactions, most recent first.
func (s *Service) List(portfolioID int64, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByPortfolio(portfolioID, limit)
}

// Get returns one transaction by id.
func (s *Service) Get(id int64) (Transaction, error) {
	t, err := s.repo.GetByID(id)
	if err != nil {
		return Transaction{}, err
	}
	if t == nil {
		return Transaction{}, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return *t, nil
}

// Amend applies an administrative correction to a stored transaction.
//
// Deliberately performs no funds or holdings re-validation and no
// retroactive cash adjustment; the stored total is not recomputed. This
// matches the documented override semantics - it is not the trading path.
func (s *Service) Amend(id int64, input AmendInput) (Transaction, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return Transaction{}, err
	}
	if existing == nil {
		return Transaction{}, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}

	unlock := s.locks.lock(existing.PortfolioID)
	defer unlock()

	if err := s.repo.Update(id, input); err != nil {
		return Transaction{}, err
	}

	s.recomputeDiversification(existing.PortfolioID)

	updated, err := s.repo.GetByID(id)
	if err != nil {
		return Transaction{}, err
	}
	if updated == nil {
		return Transaction{}, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return *updated, nil
}

// Remove deletes a transaction record administratively. Like Amend, it does
// not touch the cash balance; it does recompute diversification.
func (s *Service) Remove(id int64) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}

	unlock := s.locks.lock(existing.PortfolioID)
	defer unlock()

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.recomputeDiversification(existing.PortfolioID)
	return nil
}

// RemoveAllForPortfolio cascades a portfolio deletion into its transactions.
func (s *Service) RemoveAllForPortfolio(portfolioID int64) error {
	unlock := s.locks.lock(portfolioID)
	defer unlock()

	deleted, err := s.repo.DeleteByPortfolio(portfolioID)
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("portfolio_id", portfolioID).
		Int64("deleted", deleted).
		Msg("Portfolio transactions removed")
	return nil
}

// recomputeDiversification refreshes the portfolio's cached diversification
// map. A failure here leaves a stale cached map, which the next view or
// ledger change repairs; the recorded transaction stands either way.
func (s *Service) recomputeDiversification(portfolioID int64) {
	if s.recomputer == nil {
		return
	}
	if err := s.recomputer.RecomputeDiversification(portfolioID); err != nil {
		s.log.Warn().Err(err).
			Int64("portfolio_id", portfolioID).
			Msg("Failed to recompute diversification")
	}
}

// portfolioLocks hands out one mutex per portfolio id.
type portfolioLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newPortfolioLocks() *portfolioLocks {
	return &portfolioLocks{locks: make(map[int64]*sync.Mutex)}
}

// lock acquires the portfolio's mutex and returns the unlock func.
func (p *portfolioLocks) lock(portfolioID int64) func() {
	p.mu.Lock()
	m, ok := p.locks[portfolioID]
	if !ok {
		m = &sync.Mutex{}
		p.locks[portfolioID] = m
	}
	p.mu.Unlock()

	m.Lock()
	return m.Unlock
}
