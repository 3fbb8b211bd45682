package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"tracker/internal/core"
	"tracker/internal/ledger"
)

// Store keeps transactions and categories in process memory. It does not
// implement ledger.Aggregator, so reports over it are computed by streaming.
type Store struct {
	mu     sync.RWMutex
	cats   []core.Category
	items  map[int64]core.Transaction
	nextTx int64
}

var _ ledger.Store = (*Store)(nil)

func New(categories []string) *Store {
	s := &Store{items: make(map[int64]core.Transaction)}
	for _, name := range ledger.Dedupe(categories) {
		s.cats = append(s.cats, core.Category{ID: int64(len(s.cats) + 1), Name: name})
	}
	return s
}

// NewFromFiles seeds categories from the seed file in base.
func NewFromFiles(base string) *Store {
	return New(ledger.SeedCategories(base))
}

func (s *Store) Get(_ context.Context, owner, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.items[id]
	if !ok || tx.Owner != owner {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.withCategoryName(tx), nil
}

func (s *Store) List(_ context.Context, f core.Filter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matching(f), nil
}

// Each iterates over a snapshot taken under the read lock, so fn may call
// back into the store.
func (s *Store) Each(ctx context.Context, f core.Filter, fn func(core.Transaction) error) error {
	s.mu.RLock()
	snapshot := s.matching(f)
	s.mu.RUnlock()

	for _, tx := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Create(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.category(tx.CategoryID); !ok {
		return core.Transaction{}, ledger.ErrCategoryNotFound
	}
	s.nextTx++
	tx.ID = s.nextTx
	s.items[tx.ID] = tx
	return s.withCategoryName(tx), nil
}

func (s *Store) Update(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[tx.ID]
	if !ok || existing.Owner != tx.Owner {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if _, ok := s.category(tx.CategoryID); !ok {
		return core.Transaction{}, ledger.ErrCategoryNotFound
	}
	s.items[tx.ID] = tx
	return s.withCategoryName(tx), nil
}

func (s *Store) Delete(_ context.Context, owner, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.items[id]
	if !ok || existing.Owner != owner {
		return ledger.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.cats)
	slices.SortFunc(out, func(a, b core.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.category(id)
	if !ok {
		return core.Category{}, ledger.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) CreateCategory(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if _, ok := s.categoryByName(name); ok {
		return core.Category{}, fmt.Errorf("%w: %q", ledger.ErrDuplicateCategory, name)
	}
	return s.addCategory(name), nil
}

func (s *Store) EnsureCategory(_ context.Context, name string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	if c, ok := s.categoryByName(name); ok {
		return c, nil
	}
	return s.addCategory(name), nil
}

func (s *Store) addCategory(name string) core.Category {
	c := core.Category{ID: int64(len(s.cats) + 1), Name: name}
	s.cats = append(s.cats, c)
	return c
}

// matching must be called with the lock held.
func (s *Store) matching(f core.Filter) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range s.items {
		if f.Matches(tx) {
			out = append(out, s.withCategoryName(tx))
		}
	}
	slices.SortFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (s *Store) withCategoryName(tx core.Transaction) core.Transaction {
	if c, ok := s.category(tx.CategoryID); ok {
		tx.CategoryName = c.Name
	}
	return tx
}

func (s *Store) category(id int64) (core.Category, bool) {
	if id < 1 || id > int64(len(s.cats)) {
		return core.Category{}, false
	}
	return s.cats[id-1], true
}

func (s *Store) categoryByName(name string) (core.Category, bool) {
	for _, c := range s.cats {
		if c.Name == name {
			return c, true
		}
	}
	return core.Category{}, false
}
