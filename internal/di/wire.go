// Package di wires databases, repositories, and services together.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/database"
	"github.com/finsight/finsight/internal/modules/ledger"
	"github.com/finsight/finsight/internal/modules/portfolio"
	"github.com/finsight/finsight/internal/modules/quotes"
	"github.com/finsight/finsight/internal/modules/valuation"
)

// Container holds every wired component. Construction order runs databases,
// then repositories, then services; handlers are built by the server from
// the services here.
type Container struct {
	LedgerDB    *database.DB
	PortfolioDB *database.DB
	CacheDB     *database.DB

	LedgerRepo *ledger.Repository
	CacheRepo  *quotes.CacheRepository

	PortfolioService *portfolio.Service
	LedgerService    *ledger.Service
	QuotesService    *quotes.Service
	ValuationService *valuation.Service
}

// Wire builds the full container from configuration. Databases are opened
// and migrated here so a schema problem fails startup, not the first request.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{}

	if err := c.wireDatabases(cfg); err != nil {
		return nil, err
	}

	c.LedgerRepo = ledger.NewRepository(c.LedgerDB.Conn(), log)
	c.CacheRepo = quotes.NewCacheRepository(c.CacheDB.Conn(), log)
	portfolioRepo := portfolio.NewRepository(c.PortfolioDB.Conn(), log)

	c.PortfolioService = portfolio.NewService(portfolioRepo, c.LedgerRepo, c.LedgerRepo, log)

	source := quotes.NewChainSource(log,
		quotes.NewYahooClient(log),
		quotes.NewAlphaVantageClient(cfg.AlphaVantageAPIKey, log),
	)
	c.QuotesService = quotes.NewService(c.CacheRepo, source, cfg.FreshnessWindow, cfg.QuoteTimeout, log)

	c.LedgerService = ledger.NewService(c.LedgerRepo, c.PortfolioService, c.QuotesService, c.PortfolioService, log)
	c.ValuationService = valuation.NewService(c.LedgerService, c.QuotesService, log)

	return c, nil
}

func (c *Container) wireDatabases(cfg *config.Config) error {
	databases := []struct {
		target  **database.DB
		name    string
		profile database.DatabaseProfile
	}{
		{&c.LedgerDB, "ledger", database.ProfileLedger},
		{&c.PortfolioDB, "portfolio", database.ProfileStandard},
		{&c.CacheDB, "cache", database.ProfileCache},
	}

	for _, d := range databases {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, d.name+".db"),
			Profile: d.profile,
			Name:    d.name,
		})
		if err != nil {
			return fmt.Errorf("failed to open %s database: %w", d.name, err)
		}
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate %s database: %w", d.name, err)
		}
		*d.target = db
	}

	return nil
}

// Close releases every database connection.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.LedgerDB, c.PortfolioDB, c.CacheDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
