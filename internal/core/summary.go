package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"total"`
}

// Summary holds income, expense and net totals for a filtered set.
type Summary struct {
	TotalIncome   Money `json:"total_income"`
	TotalExpenses Money `json:"total_expenses"`
	NetIncome     Money `json:"net_income"`
}

// NewSummary derives the net figure from the two type totals.
func NewSummary(income, expenses Money) Summary {
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetIncome:     income.Sub(expenses),
	}
}

// EmptySummary is the result for a set with no transactions.
func EmptySummary() Summary {
	return NewSummary(Zero, Zero)
}

// Overview is a summary plus the per-category breakdown of each type.
type Overview struct {
	Summary  Summary          `json:"summary"`
	Income   []CategoryAmount `json:"income_by_category"`
	Expenses []CategoryAmount `json:"expenses_by_category"`
}
