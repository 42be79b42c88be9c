package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/lifeplan/internal/constants"
	"github.com/julianstephens/lifeplan/internal/logicalday"
	"github.com/julianstephens/lifeplan/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func instance(owner, day, amount string, status constants.InstanceStatus) models.Instance {
	return models.Instance{
		OwnerKind: constants.OwnerTransaction,
		OwnerID:   owner,
		Day:       logicalday.MustParse(day),
		Amount:    d(amount),
		Status:    status,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "%s: want %s, got %s", msg, want, got)
}

func TestProject(t *testing.T) {
	txns := []models.RecurringTransaction{
		{ID: "salary", Currency: "USD", Category: "income", Amount: d("3000")},
		{ID: "rent", Currency: "USD", Category: "housing", Amount: d("-1200.50")},
		{ID: "coffee", Currency: "USD", Amount: d("-4.25")},
		{ID: "rent-eu", Currency: "EUR", Category: "housing", Amount: d("-800")},
	}
	instances := []models.Instance{
		instance("salary", "2024-01-01", "3000", constants.StatusDone),
		instance("rent", "2024-01-01", "-1200.50", constants.StatusDone),
		instance("coffee", "2024-01-02", "-4.25", constants.StatusPending),
		instance("coffee", "2024-01-03", "-4.25", constants.StatusSkipped),
		instance("rent-eu", "2024-01-01", "-800", constants.StatusPending),
		{OwnerKind: constants.OwnerHabit, OwnerID: "read", Day: logicalday.MustParse("2024-01-01"), Status: constants.StatusDone},
	}

	sum := Project(instances, txns)
	require.Len(t, sum.Currencies, 2)

	eur := sum.Currencies[0]
	assert.Equal(t, "EUR", eur.Currency)
	assertDecimal(t, "800", eur.Expense, "eur expense")
	assertDecimal(t, "-800", eur.Projected, "eur projected")

	usd := sum.Currencies[1]
	assert.Equal(t, "USD", usd.Currency)
	assertDecimal(t, "3000", usd.Income, "income")
	assertDecimal(t, "1204.75", usd.Expense, "expense")
	assertDecimal(t, "1795.25", usd.Net, "net")
	assertDecimal(t, "1799.50", usd.Settled, "settled")
	assertDecimal(t, "-4.25", usd.Projected, "projected")

	require.Len(t, usd.ByDay, 2, "the skipped day contributes nothing")
	assert.Equal(t, "2024-01-01", usd.ByDay[0].Day.String())
	assertDecimal(t, "1799.50", usd.ByDay[0].Net, "jan 1 net")
	assertDecimal(t, "4.25", usd.ByDay[1].Expense, "jan 2 expense")

	require.Len(t, usd.ByCategory, 3)
	assert.Equal(t, "housing", usd.ByCategory[0].Category)
	assert.Equal(t, "income", usd.ByCategory[1].Category)
	assert.Equal(t, "uncategorized", usd.ByCategory[2].Category)
}

func TestProjectEmpty(t *testing.T) {
	assert.Empty(t, Project(nil, nil).Currencies)
}

func TestProjectAvoidsFloatDrift(t *testing.T) {
	txns := []models.RecurringTransaction{{ID: "dime", Currency: "USD"}}
	var instances []models.Instance
	day := logicalday.MustParse("2024-01-01")
	for i := 0; i < 10; i++ {
		in := instance("dime", "2024-01-01", "0.10", constants.StatusPending)
		in.Day = day.AddDays(i)
		instances = append(instances, in)
	}

	sum := Project(instances, txns)
	require.Len(t, sum.Currencies, 1)
	assert.Equal(t, "1", sum.Currencies[0].Income.String())
}
