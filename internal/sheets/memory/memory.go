package memory

import (
	"context"
	"slices"
	"sync"

	"tracker/internal/core"
	"tracker/internal/sheets"
)

// Exporter keeps the latest exported overview per owner in memory. It is
// the exporter used when no spreadsheet is configured.
type Exporter struct {
	mu      sync.Mutex
	reports map[int64]core.Overview
	count   int
}

var _ sheets.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{reports: make(map[int64]core.Overview)}
}

func (e *Exporter) ExportOverview(ctx context.Context, owner int64, ov core.Overview) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ov.Income = slices.Clone(ov.Income)
	ov.Expenses = slices.Clone(ov.Expenses)
	e.reports[owner] = ov
	e.count++
	return nil
}

// Latest returns the last overview exported for owner.
func (e *Exporter) Latest(owner int64) (core.Overview, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ov, ok := e.reports[owner]
	return ov, ok
}

// Exports counts successful exports across all owners.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}
