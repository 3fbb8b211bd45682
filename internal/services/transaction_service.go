package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/ledger"
)

// ErrValidation wraps every input error so transports can map it to a
// single status.
var ErrValidation = errors.New("validation failed")

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// Invalidator drops cached reports for an owner. *report.Service satisfies it.
type Invalidator interface {
	Invalidate(owner int64)
}

// TransactionService orchestrates writes across storage, the report cache
// and AMQP. Storage is authoritative; cache invalidation and event
// publishing happen after a successful write and never fail the request.
type TransactionService struct {
	store     ledger.Store
	reports   Invalidator
	publisher EventPublisher
}

// NewTransactionService wires the service. reports and publisher may be nil.
func NewTransactionService(store ledger.Store, reports Invalidator, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		reports:   reports,
		publisher: publisher,
	}
}

func (s *TransactionService) GetTransaction(ctx context.Context, owner, id int64) (core.Transaction, error) {
	return s.store.Get(ctx, owner, id)
}

func (s *TransactionService) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	return s.store.List(ctx, f)
}

// CreateTransaction validates and stores tx for its owner.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := s.validate(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.changed(ctx, amqp.EventCreated, created.Owner, created.ID)
	return created, nil
}

// UpdateTransaction replaces an existing transaction of the same owner.
func (s *TransactionService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := s.validate(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.Update(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}

	s.changed(ctx, amqp.EventUpdated, updated.Owner, updated.ID)
	return updated, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, owner, id int64) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.changed(ctx, amqp.EventDeleted, owner, id)
	return nil
}

func (s *TransactionService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *TransactionService) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	created, err := s.store.CreateCategory(ctx, c.Name)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateCategory) {
			return core.Category{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", created.ID, "name", created.Name)
	return created, nil
}

func (s *TransactionService) validate(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := s.store.GetCategory(ctx, tx.CategoryID); err != nil {
		if errors.Is(err, ledger.ErrCategoryNotFound) {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

// changed runs the post-write side effects.
func (s *TransactionService) changed(ctx context.Context, kind amqp.EventKind, owner, id int64) {
	if s.reports != nil {
		s.reports.Invalidate(owner)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "kind", kind, "id", id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(kind, owner, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind, "owner_id", owner, "id", id, "error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
