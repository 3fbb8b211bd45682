package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
)

func tx(t core.TransactionType, amount, category string) core.Transaction {
	m, err := core.ParseAmount(amount)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Owner:        1,
		Type:         t,
		Amount:       m,
		Date:         core.NewDate(2024, 3, 10),
		CategoryName: category,
	}
}

func names(totals []core.CategoryAmount) []string {
	out := make([]string, len(totals))
	for i, c := range totals {
		out[i] = c.Name
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		txs      []core.Transaction
		income   string
		expenses string
		net      string
	}{
		{
			name:     "empty set",
			income:   "0.00",
			expenses: "0.00",
			net:      "0.00",
		},
		{
			name: "mixed",
			txs: []core.Transaction{
				tx(core.Income, "3000", "Salary"),
				tx(core.Income, "250.50", "Freelance"),
				tx(core.Expense, "1200", "Rent/Mortgage"),
				tx(core.Expense, "80.25", "Groceries"),
			},
			income:   "3250.50",
			expenses: "1280.25",
			net:      "1970.25",
		},
		{
			name: "only expenses gives negative net",
			txs: []core.Transaction{
				tx(core.Expense, "10.10", "Food & Dining"),
				tx(core.Expense, "0.20", "Food & Dining"),
			},
			income:   "0.00",
			expenses: "10.30",
			net:      "-10.30",
		},
		{
			name: "decimal sums stay exact",
			txs: []core.Transaction{
				tx(core.Income, "0.10", "Gift"),
				tx(core.Income, "0.20", "Gift"),
			},
			income:   "0.30",
			expenses: "0.00",
			net:      "0.30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.txs)
			assert.Equal(t, tt.income, s.TotalIncome.String())
			assert.Equal(t, tt.expenses, s.TotalExpenses.String())
			assert.Equal(t, tt.net, s.NetIncome.String())
			assert.True(t, s.NetIncome.Equal(s.TotalIncome.Sub(s.TotalExpenses)))
		})
	}
}

func TestSummarizeIgnoresUnknownTypes(t *testing.T) {
	bad := tx(core.Income, "99", "Salary")
	bad.Type = "transfer"
	s := Summarize([]core.Transaction{tx(core.Income, "1", "Salary"), bad})
	assert.Equal(t, "1.00", s.TotalIncome.String())
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "5", "Gas"),
		tx(core.Income, "7", "Bonus"),
	}
	before := append([]core.Transaction(nil), txs...)
	Summarize(txs)
	BreakdownByCategory(txs, core.Expense)
	assert.Equal(t, before, txs)
}

func TestBreakdownByCategory(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "50", "Groceries"),
		tx(core.Expense, "20", "Transportation"),
		tx(core.Expense, "30", "Groceries"),
		tx(core.Expense, "100", "Rent/Mortgage"),
		tx(core.Income, "500", "Salary"),
	}

	got := BreakdownByCategory(txs, core.Expense)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Rent/Mortgage", "Groceries", "Transportation"}, names(got))
	assert.Equal(t, "100.00", got[0].Amount.String())
	assert.Equal(t, "80.00", got[1].Amount.String())
	assert.Equal(t, "20.00", got[2].Amount.String())

	// Totals add back up to the type total.
	sum := core.Zero
	for _, c := range got {
		sum = sum.Add(c.Amount)
	}
	assert.True(t, sum.Equal(Summarize(txs).TotalExpenses))
}

func TestBreakdownByCategoryEmpty(t *testing.T) {
	got := BreakdownByCategory([]core.Transaction{tx(core.Income, "1", "Salary")}, core.Expense)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBreakdownTieBreaksByName(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, "40", "Shopping"),
		tx(core.Expense, "40", "Gas"),
		tx(core.Expense, "40", "Internet"),
		tx(core.Expense, "90", "Travel"),
	}
	for i := 0; i < 5; i++ {
		got := BreakdownByCategory(txs, core.Expense)
		assert.Equal(t, []string{"Travel", "Gas", "Internet", "Shopping"}, names(got))
	}
}

func TestBreakdownFallsBackToCategoryID(t *testing.T) {
	unnamed := tx(core.Income, "12", "")
	unnamed.CategoryID = 7
	got := BreakdownByCategory([]core.Transaction{unnamed}, core.Income)
	require.Len(t, got, 1)
	assert.Equal(t, "Category #7", got[0].Name)
}

func TestAccumulatorOverview(t *testing.T) {
	acc := NewAccumulator()
	for _, x := range []core.Transaction{
		tx(core.Income, "1000", "Salary"),
		tx(core.Income, "200", "Dividend"),
		tx(core.Expense, "300", "Travel"),
	} {
		acc.Add(x)
	}

	ov := acc.Overview()
	assert.Equal(t, "900.00", ov.Summary.NetIncome.String())
	assert.Equal(t, []string{"Salary", "Dividend"}, names(ov.Income))
	assert.Equal(t, []string{"Travel"}, names(ov.Expenses))
	assert.Equal(t, "1200.00", acc.Total(core.Income).String())
}
