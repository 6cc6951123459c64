package portfolio

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight/finsight/internal/domain"
)

// Portfolio is a user's single investment account. CashBalance and the
// diversification weights are held as exact decimals; rounding happens in the
// HTTP layer only.
type Portfolio struct {
	CreatedAt       time.Time                  `json:"created_at"`
	Diversification map[string]decimal.Decimal `json:"diversification"`
	Name            string                     `json:"name"`
	Description     string                     `json:"description"`
	RiskTolerance   domain.RiskTolerance       `json:"risk_tolerance"`
	InvestmentGoal  string                     `json:"investment_goal"`
	CashBalance     decimal.Decimal            `json:"cash_balance"`
	ID              int64                      `json:"id"`
	UserID          int64                      `json:"user_id"`
}

// CreateInput carries the user-supplied fields for a new portfolio.
type CreateInput struct {
	Name           string               `json:"name"`
	Description    string               `json:"description"`
	RiskTolerance  domain.RiskTolerance `json:"risk_tolerance"`
	InvestmentGoal string               `json:"investment_goal"`
	CashBalance    *decimal.Decimal     `json:"cash_balance,omitempty"`
}

// Validate checks a CreateInput before it reaches the database.
func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.Validationf("portfolio name is required")
	}
	if in.RiskTolerance == "" {
		in.RiskTolerance = domain.RiskMedium
	}
	if !in.RiskTolerance.Valid() {
		return domain.Validationf("invalid risk tolerance %q", in.RiskTolerance)
	}
	if in.CashBalance != nil && in.CashBalance.IsNegative() {
		return domain.Validationf("initial cash balance cannot be negative")
	}
	return nil
}

// UpdateInput carries optional profile-field changes. Nil fields are left
// untouched. Cash is deliberately absent: cash moves only through trades or
// the admin override.
type UpdateInput struct {
	Name           *string               `json:"name,omitempty"`
	Description    *string               `json:"description,omitempty"`
	RiskTolerance  *domain.RiskTolerance `json:"risk_tolerance,omitempty"`
	InvestmentGoal *string               `json:"investment_goal,omitempty"`
}

// Validate checks the populated fields of an UpdateInput.
func (in *UpdateInput) Validate() error {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return domain.Validationf("portfolio name cannot be empty")
		}
		in.Name = &trimmed
	}
	if in.RiskTolerance != nil && !in.RiskTolerance.Valid() {
		return domain.Validationf("invalid risk tolerance %q", *in.RiskTolerance)
	}
	return nil
}
