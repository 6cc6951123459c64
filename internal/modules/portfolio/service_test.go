package portfolio

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/domain"
)

func setupPortfolioDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE portfolios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cash_balance TEXT NOT NULL DEFAULT '0',
			risk_tolerance TEXT NOT NULL CHECK(risk_tolerance IN ('LOW', 'MEDIUM', 'HIGH')),
			investment_goal TEXT NOT NULL DEFAULT '',
			diversification TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err, "Failed to create test table")

	return db
}

// fakeHoldings satisfies HoldingsReader and TransactionPurger.
type fakeHoldings struct {
	holdings map[string]int64
	purged   []int64
}

func (f *fakeHoldings) HoldingsByTicker(portfolioID int64) (map[string]int64, error) {
	return f.holdings, nil
}

func (f *fakeHoldings) DeleteByPortfolio(portfolioID int64) (int64, error) {
	f.purged = append(f.purged, portfolioID)
	return int64(len(f.holdings)), nil
}

func newPortfolioService(t *testing.T, holdings map[string]int64) (*Service, *fakeHoldings) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(setupPortfolioDB(t), log)
	ledger := &fakeHoldings{holdings: holdings}
	return NewService(repo, ledger, ledger, log), ledger
}

func createPortfolio(t *testing.T, svc *Service, userID int64, cash string) *Portfolio {
	t.Helper()
	balance := decimal.RequireFromString(cash)
	p, err := svc.Create(userID, CreateInput{Name: "Main", CashBalance: &balance})
	require.NoError(t, err)
	return p
}

func TestCreate_OnePortfolioPerUser(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)

	p := createPortfolio(t, svc, 7, "10000")
	assert.Greater(t, p.ID, int64(0))
	assert.Equal(t, domain.RiskMedium, p.RiskTolerance)

	_, err := svc.Create(7, CreateInput{Name: "Second"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	negative := decimal.NewFromInt(-5)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"empty name", CreateInput{Name: "  "}},
		{"bad risk tolerance", CreateInput{Name: "Main", RiskTolerance: "EXTREME"}},
		{"negative starting cash", CreateInput{Name: "Main", CashBalance: &negative}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(1, tc.input)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestGetByUser_And_Exists(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	createPortfolio(t, svc, 7, "100")

	p, err := svc.GetByUser(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.UserID)

	_, err = svc.GetByUser(8)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	exists, err := svc.Exists(7)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(8)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAdjustCashBalance_RejectsOverdraw(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	p := createPortfolio(t, svc, 1, "100")

	err := svc.AdjustCashBalance(p.ID, decimal.RequireFromString("-150"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := svc.GetCashBalance(p.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("100")))
}

func TestAdjustCashBalance_AppliesDelta(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	p := createPortfolio(t, svc, 1, "100")

	require.NoError(t, svc.AdjustCashBalance(p.ID, decimal.RequireFromString("-40.25")))
	require.NoError(t, svc.AdjustCashBalance(p.ID, decimal.RequireFromString("10")))

	balance, err := svc.GetCashBalance(p.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("69.75")), "got %s", balance)
}

// The override path skips the non-negative rule entirely.
func TestAdminOverrideCash_NoInvariantChecks(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	p := createPortfolio(t, svc, 1, "100")

	updated, err := svc.AdminOverrideCash(p.ID, decimal.RequireFromString("-500"))
	require.NoError(t, err)
	assert.True(t, updated.CashBalance.Equal(decimal.RequireFromString("-500")))
}

func TestRecomputeDiversification_WeightsSumToHundred(t *testing.T) {
	svc, _ := newPortfolioService(t, map[string]int64{
		"ACME": 6,
		"BETA": 3,
		"GONE": 0,
		"NEG":  -2,
	})
	p := createPortfolio(t, svc, 1, "0")

	require.NoError(t, svc.RecomputeDiversification(p.ID))

	stored, err := svc.Get(p.ID)
	require.NoError(t, err)

	assert.Len(t, stored.Diversification, 2, "zero and negative holdings excluded")
	assert.Equal(t, "66.67", stored.Diversification["ACME"].StringFixed(2))
	assert.Equal(t, "33.33", stored.Diversification["BETA"].StringFixed(2))

	sum := decimal.Zero
	for _, weight := range stored.Diversification {
		sum = sum.Add(weight)
	}
	assert.Equal(t, "100.00", sum.StringFixed(2))
}

func TestRecomputeDiversification_EmptyHoldings(t *testing.T) {
	svc, _ := newPortfolioService(t, map[string]int64{})
	p := createPortfolio(t, svc, 1, "0")

	require.NoError(t, svc.RecomputeDiversification(p.ID))

	stored, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Diversification)
}

func TestDelete_CascadesTransactions(t *testing.T) {
	svc, ledger := newPortfolioService(t, map[string]int64{"ACME": 1})
	p := createPortfolio(t, svc, 1, "0")

	require.NoError(t, svc.Delete(p.ID))
	assert.Equal(t, []int64{p.ID}, ledger.purged)

	_, err := svc.Get(p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_ProfileFieldsOnly(t *testing.T) {
	svc, _ := newPortfolioService(t, nil)
	p := createPortfolio(t, svc, 1, "250")

	name := "Retirement"
	risk := domain.RiskHigh
	updated, err := svc.Update(p.ID, UpdateInput{Name: &name, RiskTolerance: &risk})
	require.NoError(t, err)
	assert.Equal(t, "Retirement", updated.Name)
	assert.Equal(t, domain.RiskHigh, updated.RiskTolerance)
	// Cash is untouched by profile updates
	assert.True(t, updated.CashBalance.Equal(decimal.RequireFromString("250")))
}
