package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/ledger"
)

// Config controls result caching. A CacheSize of zero disables it.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

func DefaultConfig() Config {
	return Config{CacheSize: 256, CacheTTL: 5 * time.Minute}
}

// Service answers report queries for a store. When the store implements
// ledger.Aggregator the sums are pushed down to it; otherwise rows are
// streamed through an Accumulator. Both paths return identical figures and
// ordering.
//
// Service is safe for concurrent use.
type Service struct {
	reader     ledger.Reader
	agg        ledger.Aggregator
	summaries  *cache.LRUCache[core.Summary]
	breakdowns *cache.LRUCache[[]core.CategoryAmount]

	// mu orders cache fills against Invalidate. generations[owner] is bumped
	// on every invalidation; a fill that started under an older generation
	// is not stored.
	mu          sync.Mutex
	generations map[int64]uint64
}

func NewService(reader ledger.Reader, cfg Config) *Service {
	s := &Service{reader: reader, generations: make(map[int64]uint64)}
	if agg, ok := reader.(ledger.Aggregator); ok {
		s.agg = agg
	}
	if cfg.CacheSize > 0 {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = DefaultConfig().CacheTTL
		}
		s.summaries = cache.NewLRUCache[core.Summary](cfg.CacheSize, ttl)
		s.breakdowns = cache.NewLRUCache[[]core.CategoryAmount](cfg.CacheSize, ttl)
	}
	return s
}

// Delegated reports whether sums are computed by the store.
func (s *Service) Delegated() bool {
	return s.agg != nil
}

// Summary returns total income, total expenses and net income for f.
func (s *Service) Summary(ctx context.Context, f core.Filter) (core.Summary, error) {
	key := f.Key() + "#summary"
	if s.summaries != nil {
		if v, ok := s.summaries.Get(key); ok {
			slog.DebugContext(ctx, "Summary cache hit", "component", "report", "owner_id", f.Owner)
			return v, nil
		}
	}

	gen := s.generation(f.Owner)
	var (
		sum core.Summary
		err error
	)
	if s.agg != nil {
		sum, err = s.agg.SumByType(ctx, f)
	} else {
		var acc *Accumulator
		acc, err = s.stream(ctx, f)
		if acc != nil {
			sum = acc.Summary()
		}
	}
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize owner %d: %w", f.Owner, err)
	}

	if s.summaries != nil {
		s.fill(f.Owner, gen, func() { s.summaries.Set(key, sum) })
	}
	return sum, nil
}

// CategoryBreakdown returns per-category totals of type t within f, largest
// first. When f is already restricted to the other type the result is empty.
func (s *Service) CategoryBreakdown(ctx context.Context, f core.Filter, t core.TransactionType) ([]core.CategoryAmount, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidType, t)
	}
	if f.Type != "" && f.Type != t {
		return []core.CategoryAmount{}, nil
	}
	scoped := f.WithType(t)

	key := scoped.Key() + "#breakdown"
	if s.breakdowns != nil {
		if v, ok := s.breakdowns.Get(key); ok {
			slog.DebugContext(ctx, "Breakdown cache hit", "component", "report", "owner_id", f.Owner, "type", t)
			return slices.Clone(v), nil
		}
	}

	gen := s.generation(f.Owner)
	var (
		totals []core.CategoryAmount
		err    error
	)
	if s.agg != nil {
		totals, err = s.agg.SumByCategory(ctx, scoped, t)
		if totals == nil && err == nil {
			totals = []core.CategoryAmount{}
		}
	} else {
		var acc *Accumulator
		acc, err = s.stream(ctx, scoped)
		if acc != nil {
			totals = acc.Breakdown(t)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("break down %s for owner %d: %w", t, f.Owner, err)
	}

	if s.breakdowns != nil {
		stored := slices.Clone(totals)
		s.fill(f.Owner, gen, func() { s.breakdowns.Set(key, stored) })
	}
	return totals, nil
}

// Overview computes the summary and both breakdowns concurrently. It fails
// as a whole if any part fails.
func (s *Service) Overview(ctx context.Context, f core.Filter) (core.Overview, error) {
	var ov core.Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum, err := s.Summary(gctx, f)
		ov.Summary = sum
		return err
	})
	g.Go(func() error {
		totals, err := s.CategoryBreakdown(gctx, f, core.Income)
		ov.Income = totals
		return err
	})
	g.Go(func() error {
		totals, err := s.CategoryBreakdown(gctx, f, core.Expense)
		ov.Expenses = totals
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Overview{}, err
	}
	return ov, nil
}

// IncomeExpenseChart returns the Income vs Expenses comparison series.
func (s *Service) IncomeExpenseChart(ctx context.Context, f core.Filter) (Series, error) {
	sum, err := s.Summary(ctx, f)
	if err != nil {
		return Series{}, err
	}
	return IncomeExpenseSeries(sum), nil
}

// CategoryChart returns the per-category series for type t.
func (s *Service) CategoryChart(ctx context.Context, f core.Filter, t core.TransactionType) (Series, error) {
	totals, err := s.CategoryBreakdown(ctx, f, t)
	if err != nil {
		return Series{}, err
	}
	return CategorySeries(t, totals), nil
}

// Invalidate drops every cached result for owner. Reads already in flight
// for owner still return their result but no longer cache it.
func (s *Service) Invalidate(owner int64) {
	if s.summaries == nil {
		return
	}
	s.mu.Lock()
	s.generations[owner]++
	prefix := core.OwnerKeyPrefix(owner)
	removed := s.summaries.DeletePrefix(prefix) + s.breakdowns.DeletePrefix(prefix)
	s.mu.Unlock()
	if removed > 0 {
		slog.Debug("Report cache invalidated", "component", "report", "owner_id", owner, "entries_removed", removed)
	}
}

// CleanExpired implements cache.Cleaner.
func (s *Service) CleanExpired() int {
	if s.summaries == nil {
		return 0
	}
	return s.summaries.CleanExpired() + s.breakdowns.CleanExpired()
}

func (s *Service) generation(owner int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// fill runs set only if owner has not been invalidated since gen was read.
func (s *Service) fill(owner int64, gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[owner] != gen {
		slog.Debug("Discarded report computed before invalidation", "component", "report", "owner_id", owner)
		return
	}
	set()
}

func (s *Service) stream(ctx context.Context, f core.Filter) (*Accumulator, error) {
	acc := NewAccumulator()
	err := s.reader.Each(ctx, f, func(tx core.Transaction) error {
		acc.Add(tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// CacheEntries returns the number of cached results.
func (s *Service) CacheEntries() int {
	if s.summaries == nil {
		return 0
	}
	return s.summaries.Size() + s.breakdowns.Size()
}
