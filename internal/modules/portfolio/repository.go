package portfolio

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

const portfolioColumns = "id, user_id, name, description, cash_balance, risk_tolerance, investment_goal, diversification, created_at"

// Repository persists portfolios in the portfolio database.
type Repository struct {
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewRepository creates a new portfolio repository.
func NewRepository(portfolioDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio row and returns it with its assigned ID.
func (r *Repository) Create(userID int64, in CreateInput) (*Portfolio, error) {
	cash := decimal.Zero
	if in.CashBalance != nil {
		cash = *in.CashBalance
	}
	now := time.Now().UTC()

	result, err := r.portfolioDB.Exec(`
		INSERT INTO portfolios (user_id, name, description, cash_balance, risk_tolerance, investment_goal, diversification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, '{}', ?)`,
		userID, in.Name, in.Description, cash.String(), string(in.RiskTolerance), in.InvestmentGoal, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert portfolio: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio ID: %w", err)
	}

	r.log.Info().Int64("portfolio_id", id).Int64("user_id", userID).Msg("Portfolio created")

	return &Portfolio{
		ID:              id,
		UserID:          userID,
		Name:            in.Name,
		Description:     in.Description,
		CashBalance:     cash,
		RiskTolerance:   in.RiskTolerance,
		InvestmentGoal:  in.InvestmentGoal,
		Diversification: map[string]decimal.Decimal{},
		CreatedAt:       now,
	}, nil
}

// GetByID returns a portfolio by ID, or (nil, nil) when it does not exist.
func (r *Repository) GetByID(id int64) (*Portfolio, error) {
	row := r.portfolioDB.QueryRow(
		"SELECT "+portfolioColumns+" FROM portfolios WHERE id = ?", id)
	return r.scanPortfolio(row)
}

// GetByUser returns the user's portfolio, or (nil, nil) when the user has
// none. Callers use this both as a lookup and as the existence check.
func (r *Repository) GetByUser(userID int64) (*Portfolio, error) {
	row := r.portfolioDB.QueryRow(
		"SELECT "+portfolioColumns+" FROM portfolios WHERE user_id = ?", userID)
	return r.scanPortfolio(row)
}

// Update applies the populated fields of an UpdateInput.
func (r *Repository) Update(id int64, in UpdateInput) error {
	setClauses := []string{}
	args := []interface{}{}

	if in.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *in.Name)
	}
	if in.Description != nil {
		setClauses = append(setClauses, "description = ?")
		args = append(args, *in.Description)
	}
	if in.RiskTolerance != nil {
		setClauses = append(setClauses, "risk_tolerance = ?")
		args = append(args, string(*in.RiskTolerance))
	}
	if in.InvestmentGoal != nil {
		setClauses = append(setClauses, "investment_goal = ?")
		args = append(args, *in.InvestmentGoal)
	}
	if len(setClauses) == 0 {
		return nil
	}

	query := "UPDATE portfolios SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := r.portfolioDB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetCashBalance overwrites the stored cash balance.
func (r *Repository) SetCashBalance(id int64, balance decimal.Decimal) error {
	result, err := r.portfolioDB.Exec(
		"UPDATE portfolios SET cash_balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return fmt.Errorf("failed to set cash balance for portfolio %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetDiversification stores the recomputed weight map as JSON.
func (r *Repository) SetDiversification(id int64, weights map[string]decimal.Decimal) error {
	payload, err := json.Marshal(weights)
	if err != nil {
		return fmt.Errorf("failed to marshal diversification: %w", err)
	}
	result, err := r.portfolioDB.Exec(
		"UPDATE portfolios SET diversification = ? WHERE id = ?", string(payload), id)
	if err != nil {
		return fmt.Errorf("failed to store diversification for portfolio %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a portfolio row.
func (r *Repository) Delete(id int64) error {
	result, err := r.portfolioDB.Exec("DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	r.log.Info().Int64("portfolio_id", id).Msg("Portfolio deleted")
	return nil
}

func (r *Repository) scanPortfolio(row *sql.Row) (*Portfolio, error) {
	var p Portfolio
	var cash, risk, diversification string
	var createdAt int64

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &cash, &risk,
		&p.InvestmentGoal, &diversification, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}

	p.CashBalance, err = decimal.NewFromString(cash)
	if err != nil {
		return nil, fmt.Errorf("invalid cash balance %q for portfolio %d: %w", cash, p.ID, err)
	}
	p.RiskTolerance = domain.RiskTolerance(risk)
	p.CreatedAt = time.Unix(createdAt, 0).UTC()

	p.Diversification = map[string]decimal.Decimal{}
	if diversification != "" {
		if err := json.Unmarshal([]byte(diversification), &p.Diversification); err != nil {
			return nil, fmt.Errorf("invalid diversification for portfolio %d: %w", p.ID, err)
		}
	}
	return &p, nil
}
