package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/domain"
)

// Service applies the cache-first freshness policy over the price cache and
// the quote source chain.
//
// Per ticker the cache moves Absent -> Fresh -> Stale -> Fresh: a fresh
// entry serves the read without a fetch; a stale or absent entry triggers a
// bounded fetch; a failed fetch leaves the state unchanged, serving the
// stale entry when one exists. Only an absent entry plus a failed fetch
// yields ErrQuoteUnavailable.
type Service struct {
	repo            *CacheRepository
	source          Source
	freshnessWindow time.Duration
	fetchTimeout    time.Duration

	mu          sync.Mutex
	tickerLocks map[string]*sync.Mutex

	log zerolog.Logger
}

// NewService creates the price cache service. freshnessWindow is the single
// configured staleness threshold; fetchTimeout bounds each source call.
func NewService(
	repo *CacheRepository,
	source Source,
	freshnessWindow time.Duration,
	fetchTimeout time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:            repo,
		source:          source,
		freshnessWindow: freshnessWindow,
		fetchTimeout:    fetchTimeout,
		tickerLocks:     make(map[string]*sync.Mutex),
		log:             log.With().Str("service", "quotes").Logger(),
	}
}

// GetPrice returns the price to use for the ticker relative to now,
// refreshing the cache when the stored entry is stale.
//
// Concurrent calls for the same ticker serialize on a per-ticker lock, so a
// burst of reads against one stale ticker performs a single upstream fetch;
// different tickers refresh independently.
func (s *Service) GetPrice(ctx context.Context, ticker string, now time.Time) (domain.Quote, error) {
	normalized, err := domain.ValidateTicker(ticker)
	if err != nil {
		return domain.Quote{}, err
	}

	unlock := s.lockTicker(normalized)
	defer unlock()

	cached, err := s.repo.Get(normalized)
	if err != nil {
		return domain.Quote{}, err
	}

	if cached != nil && now.Sub(cached.AsOf) < s.freshnessWindow {
		return *cached, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	price, fetchErr := s.source.Fetch(fetchCtx, normalized)
	if fetchErr == nil {
		quote := domain.Quote{Ticker: normalized, Price: price, AsOf: now}
		if err := s.repo.Upsert(normalized, price, now); err != nil {
			// The caller still gets the live price; the cache write is
			// retried on the next stale read.
			s.log.Error().Err(err).Str("ticker", normalized).Msg("Failed to store refreshed price")
		}
		return quote, nil
	}

	if cached != nil {
		// Serving stale data beats failing the read.
		s.log.Warn().
			Err(fetchErr).
			Str("ticker", normalized).
			Time("as_of", cached.AsOf).
			Msg("Quote fetch failed, serving stale cached price")
		return *cached, nil
	}

	return domain.Quote{}, fmt.Errorf("no cached or live price for %s: %w", normalized, domain.ErrQuoteUnavailable)
}

// FreshnessWindow returns the configured staleness threshold.
func (s *Service) FreshnessWindow() time.Duration {
	return s.freshnessWindow
}

// PurgeOlderThan removes cache entries last updated before the cutoff.
// Exposed for the maintenance scheduler and the administrative API.
func (s *Service) PurgeOlderThan(cutoff time.Time) (int64, error) {
	return s.repo.PurgeOlderThan(cutoff)
}

func (s *Service) lockTicker(ticker string) func() {
	s.mu.Lock()
	m, ok := s.tickerLocks[ticker]
	if !ok {
		m = &sync.Mutex{}
		s.tickerLocks[ticker] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
