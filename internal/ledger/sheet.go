package ledger

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheet is the slice of the spreadsheet API the recorder needs.
type Sheet interface {
	// IDColumn reads every value in the first column.
	IDColumn(ctx context.Context) ([]string, error)
	// AppendRow appends one four-field row.
	AppendRow(ctx context.Context, id, amount, date, timeOfDay string) error
}

const (
	idColumnRange = "Sheet1!A:A"
	appendRange   = "Sheet1!A:D"
)

var spreadsheetIDRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// googleSheet talks to one worksheet through the Sheets API.
type googleSheet struct {
	svc           *sheets.Service
	spreadsheetID string
}

// OpenSheet connects to the spreadsheet behind sheetURL using a
// service-account credentials file. Missing URL or credentials fail here,
// at first use.
func OpenSheet(ctx context.Context, sheetURL, credsPath string) (Sheet, error) {
	if sheetURL == "" {
		return nil, fmt.Errorf("GSHEET_URL env var missing")
	}
	if _, err := os.Stat(credsPath); err != nil {
		return nil, fmt.Errorf("credentials not found: %s", credsPath)
	}
	m := spreadsheetIDRe.FindStringSubmatch(sheetURL)
	if m == nil {
		return nil, fmt.Errorf("cannot extract spreadsheet id from %q", sheetURL)
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credsPath),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &googleSheet{svc: svc, spreadsheetID: m[1]}, nil
}

func (g *googleSheet) IDColumn(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, idColumnRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read id column: %w", err)
	}
	ids := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

func (g *googleSheet) AppendRow(ctx context.Context, id, amount, date, timeOfDay string) error {
	vr := &sheets.ValueRange{
		Values: [][]interface{}{{id, amount, date, timeOfDay}},
	}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, appendRange, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}
