// Package ledger projects income and expenses from materialized transaction instances.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

const uncategorized = "uncategorized"

// Totals splits money movement into income and expense. Expense is reported as a
// positive magnitude.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

func (t *Totals) add(amount decimal.Decimal) {
	if amount.IsNegative() {
		t.Expense = t.Expense.Add(amount.Neg())
	} else {
		t.Income = t.Income.Add(amount)
	}
	t.Net = t.Net.Add(amount)
}

type DayTotals struct {
	Day logicalday.Date `json:"day"`
	Totals
}

type CategoryTotals struct {
	Category string `json:"category"`
	Totals
}

// CurrencySummary holds every figure for one currency; amounts are never mixed across currencies.
type CurrencySummary struct {
	Currency string `json:"currency"`
	Totals
	// Settled covers done instances, Projected covers pending ones
	Settled    decimal.Decimal  `json:"settled"`
	Projected  decimal.Decimal  `json:"projected"`
	ByDay      []DayTotals      `json:"by_day"`
	ByCategory []CategoryTotals `json:"by_category"`
}

type Summary struct {
	Currencies []CurrencySummary `json:"currencies"`
}

type accumulator struct {
	summary    CurrencySummary
	days       map[logicalday.Date]*Totals
	categories map[string]*Totals
}

// Project totals transaction instances. Habit instances and skipped instances are
// ignored. Category and currency come from the owning template.
func Project(instances []models.Instance, transactions []models.RecurringTransaction) Summary {
	templates := make(map[string]models.RecurringTransaction, len(transactions))
	for _, t := range transactions {
		templates[t.ID] = t
	}

	byCurrency := make(map[string]*accumulator)
	for _, in := range instances {
		if in.OwnerKind != constants.OwnerTransaction || in.Status == constants.StatusSkipped {
			continue
		}

		tmpl := templates[in.OwnerID]
		category := tmpl.Category
		if category == "" {
			category = uncategorized
		}

		acc, ok := byCurrency[tmpl.Currency]
		if !ok {
			acc = &accumulator{
				summary:    CurrencySummary{Currency: tmpl.Currency},
				days:       make(map[logicalday.Date]*Totals),
				categories: make(map[string]*Totals),
			}
			byCurrency[tmpl.Currency] = acc
		}

		acc.summary.Totals.add(in.Amount)
		if in.Status == constants.StatusDone {
			acc.summary.Settled = acc.summary.Settled.Add(in.Amount)
		} else {
			acc.summary.Projected = acc.summary.Projected.Add(in.Amount)
		}
		if acc.days[in.Day] == nil {
			acc.days[in.Day] = &Totals{}
		}
		acc.days[in.Day].add(in.Amount)
		if acc.categories[category] == nil {
			acc.categories[category] = &Totals{}
		}
		acc.categories[category].add(in.Amount)
	}

	var out Summary
	for _, acc := range byCurrency {
		s := acc.summary
		for day, t := range acc.days {
			s.ByDay = append(s.ByDay, DayTotals{Day: day, Totals: *t})
		}
		sort.Slice(s.ByDay, func(i, j int) bool { return s.ByDay[i].Day.Before(s.ByDay[j].Day) })
		for cat, t := range acc.categories {
			s.ByCategory = append(s.ByCategory, CategoryTotals{Category: cat, Totals: *t})
		}
		sort.Slice(s.ByCategory, func(i, j int) bool { return s.ByCategory[i].Category < s.ByCategory[j].Category })
		out.Currencies = append(out.Currencies, s)
	}
	sort.Slice(out.Currencies, func(i, j int) bool { return out.Currencies[i].Currency < out.Currencies[j].Currency })
	return out
}
