package planner

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/constants"
)

// SeedDemo creates a small set of habits and transactions for trying the planner out
func (s *Service) SeedDemo(ctx context.Context, userID string) error {
	habits := []HabitInput{
		{Name: "Morning run", LocalTime: "06:30", Rule: RuleSpec{Type: constants.RuleWeekly, Config: json.RawMessage(`{"weekdays":["mon","wed","fri"]}`)}},
		{Name: "Read", LocalTime: "21:00", Rule: RuleSpec{Type: constants.RuleDaily}},
		{Name: "Water plants", Rule: RuleSpec{Type: constants.RuleNDays, Config: json.RawMessage(`{"interval_days":3}`)}},
		{Name: "Review budget", Rule: RuleSpec{Type: constants.RuleMonthlyDay, Config: json.RawMessage(`{"weekday":"sun","occurrence":-1}`)}},
	}
	for _, in := range habits {
		if _, _, err := s.CreateHabit(ctx, userID, in); err != nil {
			return err
		}
	}

	txns := []TransactionInput{
		{Name: "Salary", Amount: decimal.NewFromInt(4200), Currency: "USD", Category: "income", Rule: RuleSpec{Type: constants.RuleMonthlyDate, Config: json.RawMessage(`{"month_day":1}`)}},
		{Name: "Rent", Amount: decimal.NewFromInt(-1650), Currency: "USD", Category: "housing", Rule: RuleSpec{Type: constants.RuleMonthlyDate, Config: json.RawMessage(`{"month_day":1}`)}},
		{Name: "Gym", Amount: decimal.RequireFromString("-39.99"), Currency: "USD", Category: "health", Rule: RuleSpec{Type: constants.RuleRRule, Config: json.RawMessage(`{"rrule":"FREQ=MONTHLY;BYMONTHDAY=15"}`)}},
		{Name: "Coffee beans", Amount: decimal.RequireFromString("-18.50"), Currency: "USD", Category: "groceries", Rule: RuleSpec{Type: constants.RuleCron, Config: json.RawMessage(`{"spec":"0 9 * * 6"}`)}},
	}
	for _, in := range txns {
		if _, _, err := s.CreateTransaction(ctx, userID, in); err != nil {
			return err
		}
	}
	return nil
}
