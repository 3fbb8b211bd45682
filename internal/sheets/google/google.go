package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tracker/internal/core"
	ports "tracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetPrefix = "Report"

type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	// SheetPrefix names the per-owner tabs, e.g. "Report 42".
	SheetPrefix string
}

// Client writes report overviews into a spreadsheet, one tab per owner.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetPrefix   string
	now           func() time.Time
}

var _ ports.ReportExporter = (*Client)(nil)

// New creates a client for cfg.SpreadsheetID using service-account
// credentials from cfg.CredentialsJSON or cfg.CredentialsFile.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	prefix := cfg.SheetPrefix
	if prefix == "" {
		prefix = defaultSheetPrefix
	}

	credentials, err := credentialsJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"spreadsheet_id", cfg.SpreadsheetID, "sheet_prefix", prefix)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetPrefix:   prefix,
		now:           time.Now,
	}, nil
}

func credentialsJSON(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// ExportOverview replaces the owner's tab contents with ov.
func (c *Client) ExportOverview(ctx context.Context, owner int64, ov core.Overview) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheet := SheetName(c.sheetPrefix, owner)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:C", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: OverviewRows(ov, c.now())}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", sheet), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Report exported to Google Sheets",
		"owner_id", owner, "sheet", sheet, "rows", len(vr.Values))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Created report sheet", "sheet", name)
	return nil
}

// literalText keeps user-supplied labels from being parsed as formulas under
// USER_ENTERED input. A leading apostrophe is hidden by Sheets.
func literalText(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// SheetName returns the tab title for an owner.
func SheetName(prefix string, owner int64) string {
	return fmt.Sprintf("%s %d", prefix, owner)
}

// OverviewRows lays out an overview as a summary block followed by one
// block per transaction type. Amounts are written as plain numbers.
func OverviewRows(ov core.Overview, generatedAt time.Time) [][]any {
	rows := [][]any{
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
		{},
		{"Summary", "Amount"},
		{"Total income", ov.Summary.TotalIncome.String()},
		{"Total expenses", ov.Summary.TotalExpenses.String()},
		{"Net income", ov.Summary.NetIncome.String()},
	}

	blocks := []struct {
		t      core.TransactionType
		totals []core.CategoryAmount
	}{
		{core.Income, ov.Income},
		{core.Expense, ov.Expenses},
	}
	for _, b := range blocks {
		rows = append(rows, []any{}, []any{b.t.Label() + " by category", "Total"})
		for _, c := range b.totals {
			rows = append(rows, []any{literalText(c.Name), c.Amount.String()})
		}
	}
	return rows
}
