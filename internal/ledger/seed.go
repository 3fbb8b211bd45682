package ledger

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SeedFile is the category seed file looked up inside the data directory.
const SeedFile = "seed_categories.txt"

// DefaultCategories seeds a store when no seed file is present.
var DefaultCategories = []string{
	"Salary", "Freelance", "Business", "Investment", "Rental Income",
	"Bonus", "Gift", "Refund", "Side Hustle", "Dividend",
	"Food & Dining", "Transportation", "Groceries", "Shopping", "Entertainment",
	"Bills & Utilities", "Healthcare", "Education", "Travel", "Insurance",
	"Home & Garden", "Personal Care", "Subscriptions", "Gas", "Rent/Mortgage",
	"Phone", "Internet", "Gym/Fitness",
}

// SeedCategories reads base/seed_categories.txt, one name per line. Blank
// lines and lines starting with # are skipped. It falls back to
// DefaultCategories when the file is missing or empty.
func SeedCategories(base string) []string {
	names := readLines(filepath.Join(base, SeedFile))
	if len(names) == 0 {
		return DefaultCategories
	}
	return names
}

// Seed makes sure every name exists in cs.
func Seed(ctx context.Context, cs CategoryStore, names []string) error {
	for _, name := range Dedupe(names) {
		if _, err := cs.EnsureCategory(ctx, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

// Dedupe drops blanks and repeats, preserving input order.
func Dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return Dedupe(out)
}
