package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tracker/internal/core"
	"tracker/internal/ledger"
)

func TestMemoryStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"Salary", "Rent", "Salary"})
	cats, err := s.ListCategories(ctx)
	if err != nil || len(cats) != 2 {
		t.Fatalf("unexpected categories: %v err=%v", cats, err)
	}

	older, err := s.Create(ctx, core.Transaction{Owner: 1, Type: core.Income, Amount: core.MoneyFromCents(100), Date: core.NewDate(2025, 1, 1), CategoryID: 1})
	if err != nil || older.ID != 1 || older.CategoryName != "Salary" {
		t.Fatalf("unexpected create: %+v err=%v", older, err)
	}
	newer, _ := s.Create(ctx, core.Transaction{Owner: 1, Type: core.Expense, Amount: core.MoneyFromCents(50), Date: core.NewDate(2025, 2, 1), CategoryID: 2})
	_, _ = s.Create(ctx, core.Transaction{Owner: 2, Type: core.Expense, Amount: core.MoneyFromCents(50), Date: core.NewDate(2025, 2, 1), CategoryID: 2})

	got, err := s.List(ctx, core.ForOwner(1))
	if err != nil || len(got) != 2 {
		t.Fatalf("unexpected list: %v err=%v", got, err)
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("expected newest first, got %v", got)
	}

	if _, err := s.Create(ctx, core.Transaction{Owner: 1, CategoryID: 99}); !errors.Is(err, ledger.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestMemoryStoreOwnership(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"A"})
	tx, _ := s.Create(ctx, core.Transaction{Owner: 1, Type: core.Income, Amount: core.MoneyFromCents(100), Date: core.NewDate(2025, 1, 1), CategoryID: 1})

	if _, err := s.Get(ctx, 2, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other owner, got %v", err)
	}
	tx.Owner = 2
	if _, err := s.Update(ctx, tx); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating as other owner, got %v", err)
	}
	if err := s.Delete(ctx, 2, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting as other owner, got %v", err)
	}
	if err := s.Delete(ctx, 1, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, 1, tx.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreEachStopsOnError(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"A"})
	for i := 0; i < 3; i++ {
		_, _ = s.Create(ctx, core.Transaction{Owner: 1, Type: core.Income, Amount: core.MoneyFromCents(100), Date: core.NewDate(2025, 1, 1), CategoryID: 1})
	}
	stop := errors.New("stop")
	seen := 0
	err := s.Each(ctx, core.ForOwner(1), func(core.Transaction) error {
		seen++
		return stop
	})
	if !errors.Is(err, stop) || seen != 1 {
		t.Fatalf("expected stop after first row, seen=%d err=%v", seen, err)
	}
}

func TestMemoryStoreCategories(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	c, err := s.CreateCategory(ctx, "Groceries")
	if err != nil || c.ID != 1 {
		t.Fatalf("create: %+v %v", c, err)
	}
	if _, err := s.CreateCategory(ctx, "Groceries"); !errors.Is(err, ledger.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	again, err := s.EnsureCategory(ctx, "Groceries")
	if err != nil || again.ID != c.ID {
		t.Fatalf("ensure existing: %+v %v", again, err)
	}
	if _, err := s.GetCategory(ctx, 42); !errors.Is(err, ledger.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	cats, _ := NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != len(ledger.DefaultCategories) {
		t.Fatalf("expected defaults when file missing, got %d", len(cats))
	}

	content := "# header\nSalary\nRent\nSalary\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cats, _ = NewFromFiles(dir).ListCategories(context.Background())
	if len(cats) != 2 || cats[0].Name != "Rent" || cats[1].Name != "Salary" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}
