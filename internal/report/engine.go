// Package report turns transaction sets into income/expense/net totals and
// per-category breakdowns, and shapes them for chart renderers.
//
// The aggregation functions are pure read-side computations: inputs are
// never mutated. Service layers store delegation and caching on top.
package report

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// Accumulator sums transactions in a single pass. Feed it rows one at a
// time with Add; it keeps one running total per type and per
// (type, category) pair, never the rows themselves.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	totals     map[core.TransactionType]decimal.Decimal
	byCategory map[core.TransactionType]map[string]decimal.Decimal
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		totals:     make(map[core.TransactionType]decimal.Decimal),
		byCategory: make(map[core.TransactionType]map[string]decimal.Decimal),
	}
}

// Add folds one transaction into the running totals. Transactions with an
// unknown type are ignored.
func (a *Accumulator) Add(tx core.Transaction) {
	if !tx.Type.IsValid() {
		return
	}
	a.totals[tx.Type] = a.totals[tx.Type].Add(tx.Amount.Amount)

	cats, ok := a.byCategory[tx.Type]
	if !ok {
		cats = make(map[string]decimal.Decimal)
		a.byCategory[tx.Type] = cats
	}
	name := categoryLabel(tx)
	cats[name] = cats[name].Add(tx.Amount.Amount)
}

// Total returns the sum for one type; zero when nothing was added.
func (a *Accumulator) Total(t core.TransactionType) core.Money {
	return core.Money{Amount: a.totals[t]}
}

func (a *Accumulator) Summary() core.Summary {
	return core.NewSummary(a.Total(core.Income), a.Total(core.Expense))
}

// Breakdown returns per-category totals of type t, largest first.
func (a *Accumulator) Breakdown(t core.TransactionType) []core.CategoryAmount {
	cats := a.byCategory[t]
	out := make([]core.CategoryAmount, 0, len(cats))
	for name, total := range cats {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Money{Amount: total}})
	}
	SortTotals(out)
	return out
}

// Overview returns the summary and both breakdowns.
func (a *Accumulator) Overview() core.Overview {
	return core.Overview{
		Summary:  a.Summary(),
		Income:   a.Breakdown(core.Income),
		Expenses: a.Breakdown(core.Expense),
	}
}

// Summarize computes income, expense and net totals over txs.
func Summarize(txs []core.Transaction) core.Summary {
	acc := NewAccumulator()
	for _, tx := range txs {
		acc.Add(tx)
	}
	return acc.Summary()
}

// BreakdownByCategory groups the transactions of type t by category and
// returns one entry per category that has at least one transaction.
func BreakdownByCategory(txs []core.Transaction, t core.TransactionType) []core.CategoryAmount {
	acc := NewAccumulator()
	for _, tx := range txs {
		if tx.Type == t {
			acc.Add(tx)
		}
	}
	return acc.Breakdown(t)
}

// SortTotals orders by amount descending, then by name ascending so equal
// totals always come out in the same order.
func SortTotals(totals []core.CategoryAmount) {
	slices.SortFunc(totals, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func categoryLabel(tx core.Transaction) string {
	if tx.CategoryName != "" {
		return tx.CategoryName
	}
	return "Category #" + strconv.FormatInt(tx.CategoryID, 10)
}
