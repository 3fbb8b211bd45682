// Package http is the JSON delivery surface of the tracker.
//
// This file parses the caller identity, report filters and transaction
// bodies out of requests.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tracker/internal/core"
	"tracker/internal/services"
)

// OwnerHeader carries the authenticated user id, set by the upstream proxy.
const OwnerHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

var (
	ErrMissingOwner = errors.New("missing " + OwnerHeader + " header")
	ErrInvalidOwner = errors.New("invalid " + OwnerHeader + " header")
)

// ParseOwner returns the positive user id from the X-User-ID header.
func ParseOwner(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if v == "" {
		return 0, ErrMissingOwner
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidOwner
	}
	return id, nil
}

// ParseFilter builds an owner-scoped filter from transaction_type,
// start_date, end_date and repeated category query parameters. Empty
// parameters leave that dimension unbounded.
func ParseFilter(query url.Values, owner int64) (core.Filter, error) {
	f := core.ForOwner(owner)

	if v := strings.TrimSpace(query.Get("transaction_type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return core.Filter{}, err
		}
		f.Type = t
	}

	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid start_date: %w", err)
		}
		f.From = d
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid end_date: %w", err)
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To.Time) {
		return core.Filter{}, errors.New("start_date must not be after end_date")
	}

	for _, v := range query["category"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return core.Filter{}, fmt.Errorf("invalid category %q", part)
			}
			f.CategoryIDs = append(f.CategoryIDs, id)
		}
	}

	return f, nil
}

// ParseBreakdownType reads the required transaction_type parameter of the
// per-category endpoints.
func ParseBreakdownType(query url.Values) (core.TransactionType, error) {
	v := strings.TrimSpace(query.Get("transaction_type"))
	if v == "" {
		return "", errors.New("transaction_type is required")
	}
	return core.ParseTransactionType(v)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 1 MiB of the request body once.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("invalid form body: %w", p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// First returns the value of the first key that is present and non-empty.
func (p *RequestBodyParser) First(keys ...string) string {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseTransaction reads type, amount, date and category_id from the body.
// transaction_type and category are accepted as aliases. Field errors are
// wrapped in services.ErrValidation; full validation happens in the service.
func ParseTransaction(p *RequestBodyParser, owner int64) (core.Transaction, error) {
	tx := core.Transaction{Owner: owner}

	if v := p.First("type", "transaction_type"); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		tx.Type = t
	}

	if v := p.Get("amount"); v != "" {
		amount, err := core.ParseAmount(v)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		tx.Amount = amount
	}

	if v := p.Get("date"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		tx.Date = d
	}

	if v := p.First("category_id", "category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return core.Transaction{}, fmt.Errorf("%w: %w", services.ErrValidation, core.ErrEmptyCategory)
		}
		tx.CategoryID = id
	}

	return tx, nil
}
