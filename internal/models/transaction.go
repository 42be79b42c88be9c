package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringTransaction is a financial template; negative amounts are expenses
type RecurringTransaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Category  string          `json:"category,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// IsExpense reports whether the transaction moves money out
func (t RecurringTransaction) IsExpense() bool {
	return t.Amount.IsNegative()
}
