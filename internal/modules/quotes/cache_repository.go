package quotes

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// CacheRepository persists last known prices, one row per ticker.
// The table is process-wide shared state with upsert semantics; rows are
// only removed by the administrative purge.
type CacheRepository struct {
	cacheDB *sql.DB
	log     zerolog.Logger
}

// NewCacheRepository creates a new price cache repository.
func NewCacheRepository(cacheDB *sql.DB, log zerolog.Logger) *CacheRepository {
	return &CacheRepository{
		cacheDB: cacheDB,
		log:     log.With().Str("repo", "price_cache").Logger(),
	}
}

// Get returns the cached entry for the ticker, or nil, nil on a miss.
func (r *CacheRepository) Get(ticker string) (*domain.Quote, error) {
	query := "SELECT ticker, last_price, as_of FROM stock_price_cache WHERE ticker = ?"

	var priceStr string
	var asOf int64
	var storedTicker string
	err := r.cacheDB.QueryRow(query, strings.ToUpper(ticker)).Scan(&storedTicker, &priceStr, &asOf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached price: %w", err)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid cached price %q for %s: %w", priceStr, storedTicker, err)
	}

	return &domain.Quote{
		Ticker: storedTicker,
		Price:  price,
		AsOf:   time.Unix(asOf, 0).UTC(),
	}, nil
}

// Upsert stores the price for the ticker, replacing any existing row.
// Last writer wins; the price and as-of pair is written atomically as a
// single row.
func (r *CacheRepository) Upsert(ticker string, price decimal.Decimal, asOf time.Time) error {
	query := `
		INSERT OR REPLACE INTO stock_price_cache (ticker, last_price, as_of)
		VALUES (?, ?, ?)
	`

	_, err := r.cacheDB.Exec(query, strings.ToUpper(ticker), price.String(), asOf.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert cached price: %w", err)
	}

	return nil
}

// PurgeOlderThan removes entries last updated before the cutoff.
// Administrative maintenance only; the read path never deletes.
func (r *CacheRepository) PurgeOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.cacheDB.Exec("DELETE FROM stock_price_cache WHERE as_of < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge price cache: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Purged price cache entries")
	}

	return deleted, nil
}

// Count returns the number of cached tickers.
func (r *CacheRepository) Count() (int64, error) {
	var count int64
	if err := r.cacheDB.QueryRow("SELECT COUNT(*) FROM stock_price_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count price cache entries: %w", err)
	}
	return count, nil
}
