package google

import (
	"errors"
	"testing"
	"time"

	"budgetdash/internal/core"
)

func TestParseBudgetRows_DefaultLayout(t *testing.T) {
	values := [][]interface{}{
		{"section", "name", "amount"},
		{"income", "Net salary", 200.0},
		{"income", "Extra income", 5.0},
		{"income", "Other income", 20.0},
		{"fixed", "Internet/Phone", 10.0},
		{"fixed", "Transport", 20.0},
		{"fixed", "Debts", 46.44},
		{"fixed", "Scheduled savings", 40.0},
		{},
		{"category", "Entertainment", "20"},
		{"category", "Clothing/Personal", "$45,00"},
	}
	cfg, err := parseBudgetRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(cfg.Income) != 3 || len(cfg.Fixed) != 4 || len(cfg.Allocations) != 2 {
		t.Fatalf("unexpected shape: %+v", cfg)
	}
	if got := core.NewBlock(cfg.Fixed).Total.Cents; got != 11644 {
		t.Fatalf("fixed total cents: got %d", got)
	}
	if cfg.Allocations[1].Name != "Clothing/Personal" || cfg.Allocations[1].Amount.Cents != 4500 {
		t.Fatalf("unexpected allocation: %+v", cfg.Allocations[1])
	}
}

func TestParseBudgetRows_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]interface{}
	}{
		{"non numeric amount", [][]interface{}{{"category", "Entertainment", "twenty"}}},
		{"missing amount", [][]interface{}{{"category", "Entertainment"}}},
		{"unknown section", [][]interface{}{{"bonus", "Lottery", 10.0}, {"category", "Entertainment", 20.0}}},
		{"no categories", [][]interface{}{{"income", "Net salary", 200.0}}},
		{"duplicate category", [][]interface{}{{"category", "Entertainment", 20.0}, {"category", "Entertainment", 5.0}}},
		{"missing name", [][]interface{}{{"category", "", 20.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBudgetRows(tt.values)
			if !errors.Is(err, core.ErrStoreFormat) {
				t.Fatalf("expected ErrStoreFormat, got %v", err)
			}
		})
	}
}

func TestParseLedgerRows(t *testing.T) {
	values := [][]interface{}{
		{"Timestamp", "Category", "Amount", "Description"},
		{"2025-03-01T10:00:00Z", "Entertainment", 12.5, "Cinema"},
		{"", "", "", ""},
		{"2025-03-02 18:30:00", "Clothing/Personal", "7,25"},
		{"2025-03-03", "Entertainment", 2.0, "Snacks"},
	}
	recs, err := parseLedgerRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].Amount.Cents != 1250 || recs[0].Description != "Cinema" {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].Amount.Cents != 725 || recs[1].Description != "" {
		t.Fatalf("unexpected second record: %+v", recs[1])
	}
	want := time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC)
	if !recs[1].Timestamp.Equal(want) {
		t.Fatalf("timestamp: got %v want %v", recs[1].Timestamp, want)
	}
}

func TestParseLedgerRows_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]interface{}
	}{
		{"bad timestamp", [][]interface{}{{"yesterday", "Entertainment", 1.0}}},
		{"bad amount", [][]interface{}{{"2025-03-01", "Entertainment", "lots"}}},
		{"negative amount", [][]interface{}{{"2025-03-01", "Entertainment", -3.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseLedgerRows(tt.values); !errors.Is(err, core.ErrStoreFormat) {
				t.Fatalf("expected ErrStoreFormat, got %v", err)
			}
		})
	}
}

func TestCellMoney(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int64
		wantErr bool
	}{
		{46.44, 4644, false},
		{0.1 + 0.2, 30, false},
		{"12,345", 1235, false},
		{"€ 9.99", 999, false},
		{"", 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := cellMoney(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("cellMoney(%v) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if err == nil && got.Cents != tt.want {
			t.Fatalf("cellMoney(%v) = %d, want %d", tt.in, got.Cents, tt.want)
		}
	}
}
