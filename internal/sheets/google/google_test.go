package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"budgetdash/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-123")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNew_DefaultSheetNames(t *testing.T) {
	c := New(nil, "id", Sheets{Expenses: "Gastos"})
	if c.budgetSheet != "Budget" || c.expensesSheet != "Gastos" || c.spentSheet != "Spent" {
		t.Fatalf("unexpected sheet names: %+v", c)
	}
}

func TestClient_NilServiceUnavailable(t *testing.T) {
	c := New(nil, "id", Sheets{})
	if _, err := c.ReadConfig(context.Background()); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	budget   [][]interface{}
	expenses [][]interface{}
	spent    [][]interface{}
	fail     bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		http.Error(w, `{"error":{"code":403,"message":"permission denied"}}`, http.StatusForbidden)
		return
	}
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(path, "/values/Budget"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": f.budget})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/Expenses"):
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"values": f.expenses})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &vr)
		f.expenses = append(f.expenses, vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"updates": map[string]interface{}{"updatedRange": "Expenses!A2:D2"},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.spent = nil
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && strings.Contains(path, "/values/Spent"):
		var vr gsheet.ValueRange
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &vr)
		f.spent = vr.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return New(svc, "sheet-123", Sheets{})
}

func TestClient_RoundTrip(t *testing.T) {
	f := &fakeSheets{
		budget: [][]interface{}{
			{"income", "Net salary", 200},
			{"fixed", "Debts", 46.44},
			{"category", "Entertainment", 20},
		},
		expenses: [][]interface{}{{"Timestamp", "Category", "Amount", "Description"}},
	}
	c := newTestClient(t, f)
	ctx := context.Background()

	cfg, err := c.ReadConfig(ctx)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if len(cfg.Allocations) != 1 || cfg.Allocations[0].Amount.Cents != 2000 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	rec := core.ExpenseRecord{
		Timestamp:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Category:    "Entertainment",
		Amount:      core.Money{Cents: 1500},
		Description: "Cinema",
	}
	ref, err := c.AppendExpense(ctx, rec)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Expenses!A2:D2" {
		t.Fatalf("unexpected row ref %q", ref)
	}

	recs, err := c.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Amount.Cents != 1500 || !recs[0].Timestamp.Equal(rec.Timestamp) {
		t.Fatalf("unexpected records: %+v", recs)
	}

	if err := c.WriteSpent(ctx, []core.CategoryAmount{{Name: "Entertainment", Amount: core.Money{Cents: 1500}}}); err != nil {
		t.Fatalf("write spent: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.spent) != 2 || f.spent[1][0] != "Entertainment" || f.spent[1][1] != 15.0 {
		t.Fatalf("unexpected spent rows: %v", f.spent)
	}
}

func TestClient_APIFailureIsUnavailable(t *testing.T) {
	c := newTestClient(t, &fakeSheets{fail: true})
	if _, err := c.ListExpenses(context.Background()); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := c.WriteSpent(context.Background(), nil); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
