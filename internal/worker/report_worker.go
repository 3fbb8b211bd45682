package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/cache"
	"tracker/internal/core"
	"tracker/internal/sheets"
)

// Reports is the part of report.Service the worker needs.
type Reports interface {
	Overview(ctx context.Context, f core.Filter) (core.Overview, error)
	Invalidate(owner int64)
}

// ReportWorker recomputes an owner's overview whenever one of their
// transactions changes and hands it to an exporter.
type ReportWorker struct {
	reports  Reports
	exporter sheets.ReportExporter
	seen     *cache.LRUCache[struct{}]
}

// NewReportWorker remembers up to dedupeSize processed event IDs so
// redelivered events are not exported twice.
func NewReportWorker(reports Reports, exporter sheets.ReportExporter, dedupeSize int) *ReportWorker {
	if dedupeSize <= 0 {
		dedupeSize = 1024
	}
	return &ReportWorker{
		reports:  reports,
		exporter: exporter,
		seen:     cache.NewLRUCache[struct{}](dedupeSize, time.Hour),
	}
}

// HandleEvent is an amqp.Handler.
func (w *ReportWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	if _, dup := w.seen.Get(e.EventID); dup {
		slog.InfoContext(ctx, "Skipping already processed event", "event_id", e.EventID)
		return nil
	}

	start := time.Now()
	slog.InfoContext(ctx, "Refreshing report",
		"event_id", e.EventID,
		"kind", e.Kind,
		"owner_id", e.OwnerID,
		"transaction_id", e.TransactionID)

	// Another process wrote the change, so our cache is stale.
	w.reports.Invalidate(e.OwnerID)

	ov, err := w.reports.Overview(ctx, core.ForOwner(e.OwnerID))
	if err != nil {
		return fmt.Errorf("compute overview for owner %d: %w", e.OwnerID, err)
	}

	if err := w.exporter.ExportOverview(ctx, e.OwnerID, ov); err != nil {
		return fmt.Errorf("export overview for owner %d: %w", e.OwnerID, err)
	}

	w.seen.Set(e.EventID, struct{}{})
	slog.InfoContext(ctx, "Report refreshed",
		"event_id", e.EventID,
		"owner_id", e.OwnerID,
		"net_income", ov.Summary.NetIncome.String(),
		"duration", time.Since(start))
	return nil
}
