// Package ledger declares the storage ports used by the report engine and
// the transaction service.
package ledger

import (
	"context"
	"errors"

	"tracker/internal/core"
)

var (
	ErrNotFound          = errors.New("transaction not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")
)

// Ports for outbound adapters.
type (
	Reader interface {
		// Get returns one of owner's transactions.
		Get(ctx context.Context, owner, id int64) (core.Transaction, error)
		// List returns matching transactions, newest first.
		List(ctx context.Context, f core.Filter) ([]core.Transaction, error)
		// Each streams matching transactions without materialising the set.
		// Returning an error from fn stops the iteration with that error.
		Each(ctx context.Context, f core.Filter, fn func(core.Transaction) error) error
	}

	Writer interface {
		Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Delete(ctx context.Context, owner, id int64) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		CreateCategory(ctx context.Context, name string) (core.Category, error)
		// EnsureCategory returns the category with this name, creating it if needed.
		EnsureCategory(ctx context.Context, name string) (core.Category, error)
	}

	// Aggregator is implemented by stores that can push group-by-and-sum
	// down to the data layer.
	Aggregator interface {
		SumByType(ctx context.Context, f core.Filter) (core.Summary, error)
		// SumByCategory returns totals of type t ordered by total desc, name asc.
		SumByCategory(ctx context.Context, f core.Filter, t core.TransactionType) ([]core.CategoryAmount, error)
	}

	// Store is everything a backend provides.
	Store interface {
		Reader
		Writer
		CategoryStore
	}
)
