package core

import (
	"slices"
	"strconv"
	"strings"
)

// Filter scopes a transaction query. Zero values mean "unbounded".
type Filter struct {
	Owner       int64
	From        Date // inclusive
	To          Date // inclusive
	Type        TransactionType
	CategoryIDs []int64
}

// ForOwner returns an unrestricted filter over one user's transactions.
func ForOwner(owner int64) Filter {
	return Filter{Owner: owner}
}

// WithType returns a copy restricted to a single transaction type.
func (f Filter) WithType(t TransactionType) Filter {
	f.Type = t
	f.CategoryIDs = slices.Clone(f.CategoryIDs)
	return f
}

// Matches reports whether tx falls inside the filter.
func (f Filter) Matches(tx Transaction) bool {
	if f.Owner != 0 && tx.Owner != f.Owner {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !slices.Contains(f.CategoryIDs, tx.CategoryID) {
		return false
	}
	return true
}

// Key is a stable string form suitable for cache keys. It always starts
// with the owner prefix returned by OwnerKeyPrefix.
func (f Filter) Key() string {
	ids := slices.Clone(f.CategoryIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	var b strings.Builder
	b.WriteString(OwnerKeyPrefix(f.Owner))
	b.WriteString("from=" + f.From.String())
	b.WriteString("|to=" + f.To.String())
	b.WriteString("|type=" + string(f.Type))
	b.WriteString("|cats=" + strings.Join(parts, ","))
	return b.String()
}

// OwnerKeyPrefix is the prefix shared by every Key of an owner's filters.
func OwnerKeyPrefix(owner int64) string {
	return "owner=" + strconv.FormatInt(owner, 10) + "|"
}
