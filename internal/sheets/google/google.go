package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgetdash/internal/core"
	ports "budgetdash/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client stores the budget in three sheets of one spreadsheet:
//
//	Budget:   section | name | amount      (income, fixed and category lines)
//	Expenses: timestamp | category | amount | description
//	Spent:    category | spent             (derived totals, rewritten on every append)
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	budgetSheet   string
	expensesSheet string
	spentSheet    string
}

// Sheets names the three sheets a Client works with.
type Sheets struct {
	Budget   string
	Expenses string
	Spent    string
}

// Ensure interface conformance
var _ ports.Backend = (*Client)(nil)

func (s Sheets) withDefaults() Sheets {
	if strings.TrimSpace(s.Budget) == "" {
		s.Budget = "Budget"
	}
	if strings.TrimSpace(s.Expenses) == "" {
		s.Expenses = "Expenses"
	}
	if strings.TrimSpace(s.Spent) == "" {
		s.Spent = "Spent"
	}
	return s
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string, names Sheets) *Client {
	names = names.withDefaults()
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		budgetSheet:   names.Budget,
		expensesSheet: names.Expenses,
		spentSheet:    names.Spent,
	}
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional sheet names: GOOGLE_BUDGET_SHEET_NAME (default "Budget"),
// GOOGLE_SHEET_NAME (default "Expenses"), GOOGLE_SPENT_SHEET_NAME (default "Spent").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return New(svc, spreadsheetID, Sheets{
		Budget:   os.Getenv("GOOGLE_BUDGET_SHEET_NAME"),
		Expenses: os.Getenv("GOOGLE_SHEET_NAME"),
		Spent:    os.Getenv("GOOGLE_SPENT_SHEET_NAME"),
	}), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ready() error {
	if c.svc == nil {
		return fmt.Errorf("%w: sheets service not initialized", core.ErrStoreUnavailable)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrStoreUnavailable, rng, err)
	}
	return resp.Values, nil
}

// ReadConfig reads the budget lines from the Budget sheet.
func (c *Client) ReadConfig(ctx context.Context) (core.BudgetConfig, error) {
	if err := c.ready(); err != nil {
		return core.BudgetConfig{}, err
	}
	values, err := c.get(ctx, fmt.Sprintf("%s!A:C", c.budgetSheet))
	if err != nil {
		return core.BudgetConfig{}, err
	}
	return parseBudgetRows(values)
}

// ListExpenses reads every ledger row from the Expenses sheet.
func (c *Client) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	values, err := c.get(ctx, fmt.Sprintf("%s!A:D", c.expensesSheet))
	if err != nil {
		return nil, err
	}
	return parseLedgerRows(values)
}

// AppendExpense appends one row to the Expenses sheet and returns the
// updated range as the row reference.
func (c *Client) AppendExpense(ctx context.Context, r core.ExpenseRecord) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	rng := fmt.Sprintf("%s!A:D", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Category,
		r.Amount.Decimal().InexactFloat64(),
		r.Description,
	}}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: append to %s: %w", core.ErrStoreUnavailable, c.expensesSheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.expensesSheet, nil
}

// WriteSpent rewrites the Spent sheet with one numeric row per category.
func (c *Client) WriteSpent(ctx context.Context, totals []core.CategoryAmount) error {
	if err := c.ready(); err != nil {
		return err
	}
	clearRng := fmt.Sprintf("%s!A:B", c.spentSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: clear %s: %w", core.ErrStoreUnavailable, clearRng, err)
	}

	rows := make([][]interface{}, 0, len(totals)+1)
	rows = append(rows, []interface{}{"Category", "Spent"})
	for _, t := range totals {
		rows = append(rows, []interface{}{t.Name, t.Amount.Decimal().InexactFloat64()})
	}
	rng := fmt.Sprintf("%s!A1:B%d", c.spentSheet, len(rows))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update %s: %w", core.ErrStoreUnavailable, rng, err)
	}
	return nil
}
