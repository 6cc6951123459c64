package quotes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/domain"
)

// fakeSource counts fetches and returns a canned price or error.
type fakeSource struct {
	mu    sync.Mutex
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newQuoteService(t *testing.T, source Source, window time.Duration) *Service {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewCacheRepository(setupCacheDB(t), log)
	return NewService(repo, source, window, time.Second, log)
}

func TestGetPrice_FetchesAndCachesOnMiss(t *testing.T) {
	source := &fakeSource{price: decimal.RequireFromString("123.45")}
	svc := newQuoteService(t, source, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	quote, err := svc.GetPrice(context.Background(), "ACME", now)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("123.45")))
	assert.True(t, quote.AsOf.Equal(now))
	assert.Equal(t, 1, source.fetchCount())
}

// Two reads inside the freshness window issue at most one upstream fetch.
func TestGetPrice_FreshEntrySkipsFetch(t *testing.T) {
	source := &fakeSource{price: decimal.RequireFromString("123.45")}
	svc := newQuoteService(t, source, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.GetPrice(context.Background(), "ACME", now)
	require.NoError(t, err)

	quote, err := svc.GetPrice(context.Background(), "ACME", now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.True(t, quote.AsOf.Equal(now), "fresh entry keeps its original as-of")
	assert.Equal(t, 1, source.fetchCount())
}

func TestGetPrice_StaleEntryRefetches(t *testing.T) {
	source := &fakeSource{price: decimal.RequireFromString("100")}
	svc := newQuoteService(t, source, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.GetPrice(context.Background(), "ACME", now)
	require.NoError(t, err)

	source.mu.Lock()
	source.price = decimal.RequireFromString("110")
	source.mu.Unlock()

	later := now.Add(2 * time.Hour)
	quote, err := svc.GetPrice(context.Background(), "ACME", later)
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("110")))
	assert.True(t, quote.AsOf.Equal(later))
	assert.Equal(t, 2, source.fetchCount())
}

// A stale entry plus a failing source serves the stale price rather than
// failing the read.
func TestGetPrice_FailedRefreshServesStale(t *testing.T) {
	source := &fakeSource{price: decimal.RequireFromString("95.50")}
	svc := newQuoteService(t, source, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := svc.GetPrice(context.Background(), "ACME", now)
	require.NoError(t, err)

	source.mu.Lock()
	source.err = errors.New("provider down")
	source.mu.Unlock()

	// 13 hours later the entry is well past the window
	quote, err := svc.GetPrice(context.Background(), "ACME", now.Add(13*time.Hour))
	require.NoError(t, err)
	assert.True(t, quote.Price.Equal(decimal.RequireFromString("95.50")))
	assert.True(t, quote.AsOf.Equal(now), "stale entry keeps its original as-of")
}

func TestGetPrice_AbsentAndFailedIsUnavailable(t *testing.T) {
	source := &fakeSource{err: errors.New("provider down")}
	svc := newQuoteService(t, source, time.Hour)

	_, err := svc.GetPrice(context.Background(), "ACME", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestGetPrice_InvalidTickerRejected(t *testing.T) {
	source := &fakeSource{price: decimal.NewFromInt(1)}
	svc := newQuoteService(t, source, time.Hour)

	_, err := svc.GetPrice(context.Background(), "NOT A TICKER!", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, source.fetchCount())
}

// A burst of concurrent reads against one stale ticker performs a single
// upstream fetch.
func TestGetPrice_ConcurrentReadsSingleFetch(t *testing.T) {
	source := &fakeSource{price: decimal.RequireFromString("77")}
	svc := newQuoteService(t, source, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetPrice(context.Background(), "ACME", now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, source.fetchCount())
}

func TestChainSource_FallsThroughToNextSource(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	failing := &fakeSource{err: ErrUnavailable}
	working := &fakeSource{price: decimal.RequireFromString("42")}
	chain := NewChainSource(log, failing, working)

	price, err := chain.Fetch(context.Background(), "ACME")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("42")))
	assert.Equal(t, 1, failing.fetchCount())
	assert.Equal(t, 1, working.fetchCount())
}

func TestChainSource_AllFailReturnsUnavailable(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	chain := NewChainSource(log,
		&fakeSource{err: errors.New("first down")},
		&fakeSource{err: errors.New("second down")},
	)

	_, err := chain.Fetch(context.Background(), "ACME")
	assert.ErrorIs(t, err, ErrUnavailable)
}