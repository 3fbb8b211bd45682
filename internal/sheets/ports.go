package sheets

import (
	"context"

	"tracker/internal/core"
)

// ReportExporter publishes an owner's report overview to an external
// destination. Exports replace whatever was exported before for that owner.
type ReportExporter interface {
	ExportOverview(ctx context.Context, owner int64, ov core.Overview) error
}
