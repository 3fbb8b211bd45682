package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const dateLayout = "2006-01-02"

const maxCategoryName = 100

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID           int64           `json:"id"`
		Owner        int64           `json:"owner_id"`
		Type         TransactionType `json:"type"`
		Amount       Money           `json:"amount"`
		Date         Date            `json:"date"`
		CategoryID   int64           `json:"category_id"`
		CategoryName string          `json:"category"` // Filled on read; not required for writes
	}
)

var (
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDate           = errors.New("date cannot be empty")
	ErrFutureDate          = errors.New("transaction date cannot be in the future")
	ErrEmptyCategory       = errors.New("category is required")
	ErrEmptyOwner          = errors.New("owner is required")
	ErrEmptyCategoryName   = errors.New("category name cannot be empty")
	ErrCategoryNameTooLong = errors.New("category name too long (max 100 characters)")
)

// Types lists every transaction type in display order.
func Types() []TransactionType {
	return []TransactionType{Income, Expense}
}

// ParseTransactionType accepts "income" or "expense", case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Label returns the capitalised display name used in reports.
func (t TransactionType) Label() string {
	switch t {
	case Income:
		return "Income"
	case Expense:
		return "Expenses"
	default:
		return string(t)
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON shadows time.Time's RFC 3339 encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

// Validate checks the date is set and not later than today.
func (d Date) Validate(today Date) error {
	if d.IsZero() {
		return ErrEmptyDate
	}
	if d.After(today.Time) {
		return ErrFutureDate
	}
	return nil
}

// Validate checks a transaction against the current date.
func (t Transaction) Validate() error {
	return t.ValidateAt(Today())
}

// ValidateAt checks a transaction as of the given calendar day.
func (t Transaction) ValidateAt(today Date) error {
	if t.Owner == 0 {
		return ErrEmptyOwner
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(today); err != nil {
		return err
	}
	if t.CategoryID == 0 {
		return ErrEmptyCategory
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategoryName
	}
	if len(name) > maxCategoryName {
		return ErrCategoryNameTooLong
	}
	return nil
}
