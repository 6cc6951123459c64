package ledger

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

// transactionColumns is the list of columns for the transactions table.
// Used to avoid SELECT * which can break when the schema changes.
// Column order must match scanTransaction().
const transactionColumns = `id, portfolio_id, ticker, name, kind, quantity, price_per_share, total, note, reference, created_at`

// Repository handles transaction ledger database operations.
type Repository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new ledger repository.
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// Create appends a transaction record and returns it with its assigned id.
func (r *Repository) Create(t Transaction) (Transaction, error) {
	if err := t.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	query := `
		INSERT INTO transactions
		(portfolio_id, ticker, name, kind, quantity, price_per_share, total, note, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.ledgerDB.Exec(query,
		t.PortfolioID,
		strings.ToUpper(strings.TrimSpace(t.Ticker)),
		t.Name,
		string(t.Kind),
		t.Quantity,
		t.PricePerShare.String(),
		t.Total.String(),
		nullString(t.Note),
		t.Reference,
		t.CreatedAt.Unix(),
	)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to get transaction id: %w", err)
	}
	t.ID = id

	r.log.Info().
		Int64("portfolio_id", t.PortfolioID).
		Str("ticker", t.Ticker).
		Str("kind", string(t.Kind)).
		Int64("quantity", t.Quantity).
		Msg("Transaction recorded")

	return t, nil
}

// GetByID retrieves a transaction by id. Returns nil, nil on a miss.
func (r *Repository) GetByID(id int64) (*Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE id = ?"

	row := r.ledgerDB.QueryRow(query, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &t, nil
}

// ListByPortfolio retrieves a portfolio's transactions, most recent first.
func (r *Repository) ListByPortfolio(portfolioID int64, limit int) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE portfolio_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.ledgerDB.Query(query, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListByPortfolioTicker retrieves a portfolio's transactions for one ticker,
// oldest first (ledger order).
func (r *Repository) ListByPortfolioTicker(portfolioID int64, ticker string) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE portfolio_id = ? AND ticker = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.ledgerDB.Query(query, portfolioID, strings.ToUpper(ticker))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by ticker: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// OwnedShares derives net holdings for a portfolio and ticker:
// sum of buy quantities minus sum of sell quantities. An empty history
// yields zero.
func (r *Repository) OwnedShares(portfolioID int64, ticker string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'BUY' THEN quantity ELSE -quantity END), 0)
		FROM transactions
		WHERE portfolio_id = ? AND ticker = ?
	`

	var owned int64
	err := r.ledgerDB.QueryRow(query, portfolioID, strings.ToUpper(ticker)).Scan(&owned)
	if err != nil {
		return 0, fmt.Errorf("failed to derive owned shares: %w", err)
	}

	return owned, nil
}

// HoldingsByTicker derives net holdings for every ticker the portfolio has
// ever traded. Tickers net zero or negative are included; callers filter.
func (r *Repository) HoldingsByTicker(portfolioID int64) (map[string]int64, error) {
	query := `
		SELECT ticker, COALESCE(SUM(CASE WHEN kind = 'BUY' THEN quantity ELSE -quantity END), 0)
		FROM transactions
		WHERE portfolio_id = ?
		GROUP BY ticker
	`

	rows, err := r.ledgerDB.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive holdings: %w", err)
	}
	defer rows.Close()

	holdings := make(map[string]int64)
	for rows.Next() {
		var ticker string
		var owned int64
		if err := rows.Scan(&ticker, &owned); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings[ticker] = owned
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	return holdings, nil
}

// NamesByTicker maps each ticker the portfolio has traded to the display
// name carried by its most recent transaction.
func (r *Repository) NamesByTicker(portfolioID int64) (map[string]string, error) {
	query := `
		SELECT ticker, name FROM transactions
		WHERE portfolio_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.ledgerDB.Query(query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var ticker, name string
		if err := rows.Scan(&ticker, &name); err != nil {
			return nil, fmt.Errorf("failed to scan ticker name: %w", err)
		}
		names[ticker] = name
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticker names: %w", err)
	}

	return names, nil
}

// BuyAggregates returns the total buy cost and total buy quantity for a
// portfolio and ticker. Summation happens in Go over exact decimals rather
// than in SQL, where the TEXT-stored prices would be coerced to floats.
func (r *Repository) BuyAggregates(portfolioID int64, ticker string) (decimal.Decimal, int64, error) {
	query := `
		SELECT quantity, price_per_share FROM transactions
		WHERE portfolio_id = ? AND ticker = ? AND kind = 'BUY'
	`

	rows, err := r.ledgerDB.Query(query, portfolioID, strings.ToUpper(ticker))
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query buy aggregates: %w", err)
	}
	defer rows.Close()

	totalCost := decimal.Zero
	var totalQuantity int64
	for rows.Next() {
		var quantity int64
		var priceStr string
		if err := rows.Scan(&quantity, &priceStr); err != nil {
			return decimal.Zero, 0, fmt.Errorf("failed to scan buy row: %w", err)
		}

		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return decimal.Zero, 0, fmt.Errorf("invalid stored price %q: %w", priceStr, err)
		}

		totalCost = totalCost.Add(price.Mul(decimal.NewFromInt(quantity)))
		totalQuantity += quantity
	}

	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("error iterating buy rows: %w", err)
	}

	return totalCost, totalQuantity, nil
}

// Update applies an administrative amendment to a stored transaction.
// No business-rule validation and no total recomputation happen here.
func (r *Repository) Update(id int64, input AmendInput) error {
	var sets []string
	var args []interface{}

	if input.Ticker != nil {
		sets = append(sets, "ticker = ?")
		args = append(args, domain.NormalizeTicker(*input.Ticker))
	}
	if input.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *input.Name)
	}
	if input.Kind != nil {
		sets = append(sets, "kind = ?")
		args = append(args, string(*input.Kind))
	}
	if input.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *input.Quantity)
	}
	if input.PricePerShare != nil {
		sets = append(sets, "price_per_share = ?")
		args = append(args, input.PricePerShare.String())
	}
	if input.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, nullString(*input.Note))
	}

	if len(sets) == 0 {
		return nil
	}

	query := "UPDATE transactions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := r.ledgerDB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to amend transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Warn().Int64("id", id).Msg("Transaction amended administratively")
	return nil
}

// Delete removes a transaction record (administrative override).
func (r *Repository) Delete(id int64) error {
	result, err := r.ledgerDB.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	r.log.Warn().Int64("id", id).Msg("Transaction removed administratively")
	return nil
}

// DeleteByPortfolio removes all of a portfolio's transactions.
// Used when the owning portfolio is deleted (cascade).
func (r *Repository) DeleteByPortfolio(portfolioID int64) (int64, error) {
	result, err := r.ledgerDB.Exec("DELETE FROM transactions WHERE portfolio_id = ?", portfolioID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete portfolio transactions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Helper methods

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var kind string
	var priceStr, totalStr string
	var note sql.NullString
	var createdAt int64

	err := row.Scan(
		&t.ID,
		&t.PortfolioID,
		&t.Ticker,
		&t.Name,
		&kind,
		&t.Quantity,
		&priceStr,
		&totalStr,
		&note,
		&t.Reference,
		&createdAt,
	)
	if err != nil {
		return t, err
	}

	t.Kind = domain.TransactionKind(kind)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	if note.Valid {
		t.Note = note.String
	}

	if t.PricePerShare, err = decimal.NewFromString(priceStr); err != nil {
		return t, fmt.Errorf("invalid stored price %q: %w", priceStr, err)
	}
	if t.Total, err = decimal.NewFromString(totalStr); err != nil {
		return t, fmt.Errorf("invalid stored total %q: %w", totalStr, err)
	}

	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var transactions []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
