package report

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
	"tracker/internal/ledger/memory"
)

// aggregatingStore wraps the memory store with an Aggregator that computes
// through a fresh Accumulator and counts calls.
type aggregatingStore struct {
	*memory.Store
	byType     atomic.Int32
	byCategory atomic.Int32
	fail       error
}

func (a *aggregatingStore) SumByType(ctx context.Context, f core.Filter) (core.Summary, error) {
	a.byType.Add(1)
	if a.fail != nil {
		return core.Summary{}, a.fail
	}
	txs, err := a.List(ctx, f)
	if err != nil {
		return core.Summary{}, err
	}
	return Summarize(txs), nil
}

func (a *aggregatingStore) SumByCategory(ctx context.Context, f core.Filter, t core.TransactionType) ([]core.CategoryAmount, error) {
	a.byCategory.Add(1)
	if a.fail != nil {
		return nil, a.fail
	}
	txs, err := a.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return BreakdownByCategory(txs, t), nil
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New([]string{"Salary", "Freelance", "Groceries", "Rent/Mortgage", "Travel"})
	ctx := context.Background()

	add := func(owner int64, typ core.TransactionType, amount string, day int, category int64) {
		m, err := core.ParseAmount(amount)
		require.NoError(t, err)
		_, err = store.Create(ctx, core.Transaction{
			Owner:      owner,
			Type:       typ,
			Amount:     m,
			Date:       core.NewDate(2024, 1, day),
			CategoryID: category,
		})
		require.NoError(t, err)
	}

	add(1, core.Income, "3000", 1, 1)
	add(1, core.Income, "450.75", 5, 2)
	add(1, core.Expense, "1200", 2, 4)
	add(1, core.Expense, "85.40", 9, 3)
	add(1, core.Expense, "64.60", 20, 3)
	add(1, core.Expense, "150", 25, 5)
	// Another owner's rows must never leak into owner 1's reports.
	add(2, core.Income, "99999", 3, 1)
	add(2, core.Expense, "5000", 3, 5)
	return store
}

func TestServiceSummaryStreaming(t *testing.T) {
	svc := NewService(seededStore(t), Config{})
	require.False(t, svc.Delegated())

	s, err := svc.Summary(context.Background(), core.ForOwner(1))
	require.NoError(t, err)
	assert.Equal(t, "3450.75", s.TotalIncome.String())
	assert.Equal(t, "1500.00", s.TotalExpenses.String())
	assert.Equal(t, "1950.75", s.NetIncome.String())
}

func TestServiceFilters(t *testing.T) {
	svc := NewService(seededStore(t), Config{})
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   core.Filter
		income   string
		expenses string
	}{
		{"date range inclusive", core.Filter{Owner: 1, From: core.NewDate(2024, 1, 2), To: core.NewDate(2024, 1, 9)}, "450.75", "1285.40"},
		{"type only", core.Filter{Owner: 1, Type: core.Expense}, "0.00", "1500.00"},
		{"categories", core.Filter{Owner: 1, CategoryIDs: []int64{3, 5}}, "0.00", "300.00"},
		{"empty range", core.Filter{Owner: 1, From: core.NewDate(2023, 1, 1), To: core.NewDate(2023, 12, 31)}, "0.00", "0.00"},
		{"unknown owner", core.ForOwner(42), "0.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := svc.Summary(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.income, s.TotalIncome.String())
			assert.Equal(t, tt.expenses, s.TotalExpenses.String())
		})
	}
}

func TestServiceCategoryBreakdown(t *testing.T) {
	svc := NewService(seededStore(t), Config{})
	ctx := context.Background()

	got, err := svc.CategoryBreakdown(ctx, core.ForOwner(1), core.Expense)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rent/Mortgage", "Groceries", "Travel"}, names(got))
	assert.Equal(t, "150.00", got[1].Amount.String())

	// A filter pinned to the other type yields nothing.
	got, err = svc.CategoryBreakdown(ctx, core.Filter{Owner: 1, Type: core.Income}, core.Expense)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.CategoryBreakdown(ctx, core.ForOwner(1), "transfer")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestServiceDelegatesToAggregator(t *testing.T) {
	streaming := NewService(seededStore(t), Config{})
	agg := &aggregatingStore{Store: seededStore(t)}
	delegated := NewService(agg, Config{})
	require.True(t, delegated.Delegated())

	ctx := context.Background()
	f := core.ForOwner(1)

	want, err := streaming.Overview(ctx, f)
	require.NoError(t, err)
	got, err := delegated.Overview(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, want.Summary.NetIncome.String(), got.Summary.NetIncome.String())
	assert.Equal(t, names(want.Income), names(got.Income))
	assert.Equal(t, names(want.Expenses), names(got.Expenses))
	assert.EqualValues(t, 1, agg.byType.Load())
	assert.EqualValues(t, 2, agg.byCategory.Load())
}

func TestServiceOverviewFailsAsWhole(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := NewService(&aggregatingStore{Store: seededStore(t), fail: boom}, Config{})

	_, err := svc.Overview(context.Background(), core.ForOwner(1))
	assert.ErrorIs(t, err, boom)
}

func TestServiceCachesAndInvalidates(t *testing.T) {
	agg := &aggregatingStore{Store: seededStore(t)}
	svc := NewService(agg, Config{CacheSize: 16, CacheTTL: time.Minute})
	ctx := context.Background()
	f := core.ForOwner(1)

	first, err := svc.Summary(ctx, f)
	require.NoError(t, err)
	_, err = svc.Summary(ctx, f)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg.byType.Load(), "second call should be served from cache")

	_, err = svc.Summary(ctx, core.ForOwner(2))
	require.NoError(t, err)
	assert.EqualValues(t, 2, agg.byType.Load())

	m, _ := core.ParseAmount("49.25")
	_, err = agg.Create(ctx, core.Transaction{Owner: 1, Type: core.Income, Amount: m, Date: core.NewDate(2024, 2, 1), CategoryID: 2})
	require.NoError(t, err)

	svc.Invalidate(1)
	after, err := svc.Summary(ctx, f)
	require.NoError(t, err)
	assert.EqualValues(t, 3, agg.byType.Load())
	assert.Equal(t, first.TotalIncome.Add(m).String(), after.TotalIncome.String())

	// Owner 2 stayed cached.
	_, err = svc.Summary(ctx, core.ForOwner(2))
	require.NoError(t, err)
	assert.EqualValues(t, 3, agg.byType.Load())
}

// pausingStore holds the next Each call after it has read its rows until
// release is closed.
type pausingStore struct {
	*memory.Store
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func newPausingStore(t *testing.T) *pausingStore {
	p := &pausingStore{Store: seededStore(t), read: make(chan struct{}), release: make(chan struct{})}
	p.armed.Store(true)
	return p
}

func (p *pausingStore) Each(ctx context.Context, f core.Filter, fn func(core.Transaction) error) error {
	err := p.Store.Each(ctx, f, fn)
	if p.armed.CompareAndSwap(true, false) {
		close(p.read)
		<-p.release
	}
	return err
}

func TestServiceDoesNotCacheReadsOverlappingInvalidate(t *testing.T) {
	ctx := context.Background()
	f := core.ForOwner(1)
	m, err := core.ParseAmount("100")
	require.NoError(t, err)

	reads := []struct {
		name string
		read func(*Service) (string, error)
	}{
		{
			name: "summary",
			read: func(svc *Service) (string, error) {
				sum, err := svc.Summary(ctx, f)
				return sum.TotalIncome.String(), err
			},
		},
		{
			name: "breakdown",
			read: func(svc *Service) (string, error) {
				totals, err := svc.CategoryBreakdown(ctx, f, core.Income)
				if err != nil {
					return "", err
				}
				for _, c := range totals {
					if c.Name == "Salary" {
						return c.Amount.String(), nil
					}
				}
				return "", nil
			},
		},
	}

	for _, tc := range reads {
		t.Run(tc.name, func(t *testing.T) {
			store := newPausingStore(t)
			svc := NewService(store, Config{CacheSize: 16, CacheTTL: time.Minute})

			type result struct {
				value string
				err   error
			}
			done := make(chan result, 1)
			go func() {
				v, err := tc.read(svc)
				done <- result{v, err}
			}()

			<-store.read
			_, err := store.Create(ctx, core.Transaction{Owner: 1, Type: core.Income, Amount: m, Date: core.NewDate(2024, 2, 1), CategoryID: 1})
			require.NoError(t, err)
			svc.Invalidate(1)
			close(store.release)

			stale := <-done
			require.NoError(t, stale.err)
			before, err := core.ParseAmount(stale.value)
			require.NoError(t, err)

			fresh, err := tc.read(svc)
			require.NoError(t, err)
			assert.Equal(t, before.Add(m).String(), fresh, "result read before the write must not be cached")
		})
	}
}

func TestServiceCachedBreakdownIsCopied(t *testing.T) {
	svc := NewService(seededStore(t), Config{CacheSize: 4})
	ctx := context.Background()

	got, err := svc.CategoryBreakdown(ctx, core.ForOwner(1), core.Income)
	require.NoError(t, err)
	got[0].Name = "mutated"

	again, err := svc.CategoryBreakdown(ctx, core.ForOwner(1), core.Income)
	require.NoError(t, err)
	assert.Equal(t, "Salary", again[0].Name)
}

func TestServiceCharts(t *testing.T) {
	svc := NewService(seededStore(t), Config{})
	ctx := context.Background()

	bars, err := svc.IncomeExpenseChart(ctx, core.ForOwner(1))
	require.NoError(t, err)
	assert.Equal(t, []float64{3450.75, 1500}, bars.Values())

	pie, err := svc.CategoryChart(ctx, core.ForOwner(1), core.Income)
	require.NoError(t, err)
	assert.Equal(t, "Total income per category", pie.Title)
	assert.Equal(t, []string{"Salary", "Freelance"}, pie.Labels())
}

func TestServiceHonoursCancellation(t *testing.T) {
	svc := NewService(seededStore(t), Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Summary(ctx, core.ForOwner(1))
	assert.ErrorIs(t, err, context.Canceled)
}
