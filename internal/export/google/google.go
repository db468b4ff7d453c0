// Package google writes commission reports to a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dealtrack/internal/core"
	ports "dealtrack/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.ReportWriter = (*Client)(nil)

// Options configures the Sheets report writer. Exactly one credential source
// must be set; inline JSON wins over a file path.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Deals"
	}

	credentialsJSON, err := resolveCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets report writer ready",
		"spreadsheet_id", opts.SpreadsheetID,
		"sheet", sheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func resolveCredentials(opts Options) ([]byte, error) {
	if json := strings.TrimSpace(opts.CredentialsJSON); json != "" {
		return []byte(json), nil
	}
	if file := strings.TrimSpace(opts.CredentialsFile); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing Google credentials (set inline JSON or a file path)")
}

// AppendDeal writes the deal to the next empty report row and returns its
// range reference.
func (c *Client) AppendDeal(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row from the id column.
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:K%d", c.sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{dealRow(t)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write deal row to %s: %w", c.sheetName, err)
	}

	return dataRange, nil
}

// dealRow flattens a transaction into report columns:
// id, client, type, status, location, price, GCI, agent net, broker split,
// lead source, closed date.
func dealRow(t core.Transaction) []any {
	price := t.ListPriceCents
	if t.Type != core.TypeSeller {
		price = t.BuyerBudgetCents
	}

	return []any{
		t.ID,
		t.ClientName,
		string(t.Type),
		string(t.Status),
		location(t),
		centsToDollars(price),
		centsToDollars(t.GCICents),
		centsToDollars(core.AgentNetCents(t)),
		percentOrBlank(t.BrokerSplitPct),
		t.LeadSource,
		t.UpdatedAt.Format("2006-01-02"),
	}
}

func location(t core.Transaction) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.PropertyAddress, t.City, t.State} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func centsToDollars(cents *int64) any {
	if cents == nil {
		return ""
	}
	return float64(*cents) / 100.0
}

func percentOrBlank(pct *float64) any {
	if pct == nil {
		return ""
	}
	return *pct
}
