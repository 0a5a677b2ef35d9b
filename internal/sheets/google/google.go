package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "housebudget/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.SnapshotWriter = (*Client)(nil)

// Credentials selects the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := readCredentials(ctx, creds)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewWithOptions builds a client from raw API options; tests point it at a
// local endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func readCredentials(ctx context.Context, creds Credentials) ([]byte, error) {
	json := strings.TrimSpace(creds.JSON)
	file := strings.TrimSpace(creds.File)
	if json == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case json != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(json), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteSnapshot overwrites the tab named after the person with the
// snapshot, creating the tab on first use.
func (c *Client) WriteSnapshot(ctx context.Context, snap ports.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(snap.Person) == "" {
		return errors.New("snapshot has no person")
	}

	if err := c.ensureSheet(ctx, snap.Person); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:B", quoteSheet(snap.Person))
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := snapshotRows(snap)
	writeRange := fmt.Sprintf("%s!A1:B%d", quoteSheet(snap.Person), len(rows))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	slog.InfoContext(ctx, "Snapshot written to sheet",
		"person", snap.Person,
		"records", len(snap.Records),
		"range", writeRange)
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "title", title)
	return nil
}

// LabelBeforeSpending names income minus recorded outgoings. The dashboard's
// "Remaining" also takes off spending money, which the export does not know.
const LabelBeforeSpending = "Before spending"

// snapshotRows lays the snapshot out as a two column table followed by
// a summary block.
func snapshotRows(snap ports.Snapshot) [][]any {
	rows := make([][]any, 0, len(snap.Records)+6)
	rows = append(rows, []any{"Outgoing", "Amount"})
	for _, r := range snap.Records {
		rows = append(rows, []any{r.Label, r.Amount.Decimal().StringFixed(2)})
	}
	total := snap.Total()
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	rows = append(rows,
		[]any{"", ""},
		[]any{"Total", total.Decimal().StringFixed(2)},
		[]any{"Income", snap.Income.Decimal().StringFixed(2)},
		[]any{LabelBeforeSpending, snap.Income.Sub(total).Decimal().StringFixed(2)},
		[]any{"Updated", updated.UTC().Format(time.RFC3339)},
	)
	return rows
}

// quoteSheet wraps a tab title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
