package report

import "tracker/internal/core"

// Point is one labelled value of a chart series.
type Point struct {
	Label string     `json:"label"`
	Value core.Money `json:"value"`
}

// Series is a titled, ordered list of points. It carries no styling; bar
// and pie renderers consume it as-is.
type Series struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

const IncomeExpenseTitle = "Income vs Expenses"

// IncomeExpenseSeries is the two-bar Income/Expenses comparison.
func IncomeExpenseSeries(s core.Summary) Series {
	return Series{
		Title: IncomeExpenseTitle,
		Points: []Point{
			{Label: core.Income.Label(), Value: s.TotalIncome},
			{Label: core.Expense.Label(), Value: s.TotalExpenses},
		},
	}
}

// CategoryTitle names a per-category chart, e.g. "Total income per category".
func CategoryTitle(t core.TransactionType) string {
	switch t {
	case core.Income:
		return "Total income per category"
	case core.Expense:
		return "Total expenses per category"
	default:
		return "Total per category"
	}
}

// CategorySeries keeps the order of totals, which callers get sorted from
// the engine.
func CategorySeries(t core.TransactionType, totals []core.CategoryAmount) Series {
	points := make([]Point, len(totals))
	for i, c := range totals {
		points[i] = Point{Label: c.Name, Value: c.Amount}
	}
	return Series{Title: CategoryTitle(t), Points: points}
}

// Labels and Values split a series for renderers that take parallel slices.
func (s Series) Labels() []string {
	out := make([]string, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Label
	}
	return out
}

func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value.Float64()
	}
	return out
}
