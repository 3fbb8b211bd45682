package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tracker/internal/core"
	"tracker/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores transactions and categories in SQLite. Besides
// ledger.Store it implements ledger.Aggregator, so report totals are
// computed with GROUP BY instead of loading rows.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.Store      = (*SQLiteRepository)(nil)
	_ ledger.Aggregator = (*SQLiteRepository)(nil)
)

const selectTransaction = `SELECT t.id, t.owner_id, t.type, t.amount_cents, t.date, t.category_id, c.name
FROM transactions t JOIN categories c ON c.id = t.category_id`

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dataSource(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// dataSource enables foreign keys and a busy timeout on every connection.
func dataSource(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Get(ctx context.Context, owner, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ? AND t.owner_id = ?`, id, owner)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	err := r.Each(ctx, f, func(tx core.Transaction) error {
		out = append(out, tx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Each(ctx context.Context, f core.Filter, fn func(core.Transaction) error) error {
	where, args := whereClause(f)
	rows, err := r.db.QueryContext(ctx, selectTransaction+where+` ORDER BY t.date DESC, t.id DESC`, args...)
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return fmt.Errorf("scan transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *SQLiteRepository) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := r.GetCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (owner_id, type, amount_cents, date, category_id) VALUES (?, ?, ?, ?, ?)`,
		tx.Owner, string(tx.Type), tx.Amount.Cents(), tx.Date.String(), tx.CategoryID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"owner_id", tx.Owner,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents(),
		"date", tx.Date.String())

	return r.Get(ctx, tx.Owner, id)
}

func (r *SQLiteRepository) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := r.GetCategory(ctx, tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount_cents = ?, date = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ?`,
		string(tx.Type), tx.Amount.Cents(), tx.Date.String(), tx.CategoryID, tx.ID, tx.Owner)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}
	if err := requireAffected(res); err != nil {
		return core.Transaction{}, err
	}
	return r.Get(ctx, tx.Owner, tx.ID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id, "owner_id", owner)
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ledger.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if _, err := r.categoryByName(ctx, name); err == nil {
		return core.Category{}, fmt.Errorf("%w: %q", ledger.ErrDuplicateCategory, name)
	} else if !errors.Is(err, ledger.ErrCategoryNotFound) {
		return core.Category{}, err
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("last insert id: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

func (r *SQLiteRepository) EnsureCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if _, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?)`, name); err != nil {
		return core.Category{}, fmt.Errorf("ensure category %q: %w", name, err)
	}
	return r.categoryByName(ctx, name)
}

// SumByType implements ledger.Aggregator.
func (r *SQLiteRepository) SumByType(ctx context.Context, f core.Filter) (core.Summary, error) {
	where, args := whereClause(f)
	query := `SELECT
		COALESCE(SUM(CASE WHEN t.type = 'income' THEN t.amount_cents END), 0),
		COALESCE(SUM(CASE WHEN t.type = 'expense' THEN t.amount_cents END), 0)
	FROM transactions t` + where

	var income, expenses int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&income, &expenses); err != nil {
		return core.Summary{}, fmt.Errorf("sum by type: %w", err)
	}
	return core.NewSummary(core.MoneyFromCents(income), core.MoneyFromCents(expenses)), nil
}

// SumByCategory implements ledger.Aggregator.
func (r *SQLiteRepository) SumByCategory(ctx context.Context, f core.Filter, t core.TransactionType) ([]core.CategoryAmount, error) {
	where, args := whereClause(f.WithType(t))
	query := `SELECT c.name, SUM(t.amount_cents) AS total
	FROM transactions t JOIN categories c ON c.id = t.category_id` + where + `
	GROUP BY c.id, c.name
	ORDER BY total DESC, c.name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	out := make([]core.CategoryAmount, 0)
	for rows.Next() {
		var (
			name  string
			cents int64
		)
		if err := rows.Scan(&name, &cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, core.CategoryAmount{Name: name, Amount: core.MoneyFromCents(cents)})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) categoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = ?`, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ledger.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %q: %w", name, err)
	}
	return c, nil
}

// whereClause renders f as a WHERE clause over the transactions alias t.
// Dates are stored as YYYY-MM-DD so they compare lexically.
func whereClause(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Owner != 0 {
		conds = append(conds, "t.owner_id = ?")
		args = append(args, f.Owner)
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.To.String())
	}
	if len(f.CategoryIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.CategoryIDs)), ",")
		conds = append(conds, "t.category_id IN ("+marks+")")
		for _, id := range f.CategoryIDs {
			args = append(args, id)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx    core.Transaction
		typ   string
		cents int64
		date  string
	)
	if err := s.Scan(&tx.ID, &tx.Owner, &typ, &cents, &date, &tx.CategoryID, &tx.CategoryName); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Amount = core.MoneyFromCents(cents)
	tx.Date = d
	return tx, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
