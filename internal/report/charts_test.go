package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
)

func TestIncomeExpenseSeries(t *testing.T) {
	s := IncomeExpenseSeries(core.NewSummary(core.MoneyFromCents(150000), core.MoneyFromCents(42050)))

	assert.Equal(t, IncomeExpenseTitle, s.Title)
	assert.Equal(t, []string{"Income", "Expenses"}, s.Labels())
	assert.Equal(t, []float64{1500, 420.5}, s.Values())
}

func TestCategorySeries(t *testing.T) {
	totals := []core.CategoryAmount{
		{Name: "Rent/Mortgage", Amount: core.MoneyFromCents(120000)},
		{Name: "Groceries", Amount: core.MoneyFromCents(8025)},
	}

	s := CategorySeries(core.Expense, totals)
	assert.Equal(t, "Total expenses per category", s.Title)
	require.Len(t, s.Points, 2)
	assert.Equal(t, []string{"Rent/Mortgage", "Groceries"}, s.Labels())
	assert.Equal(t, []float64{1200, 80.25}, s.Values())

	assert.Equal(t, "Total income per category", CategorySeries(core.Income, nil).Title)
}

func TestCategorySeriesEmpty(t *testing.T) {
	s := CategorySeries(core.Income, nil)
	assert.Empty(t, s.Points)
	assert.Empty(t, s.Labels())
}
