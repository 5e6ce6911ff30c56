package dashboard

import (
	"testing"
	"time"

	"budgetdash/internal/budget"
	"budgetdash/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(records ...core.ExpenseRecord) core.BudgetSnapshot {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return budget.Reconcile(core.ConfigSnapshot(core.DefaultConfig()), records, at)
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{4644, "$46.44"},
		{123456, "$1,234.56"},
		{100000000, "$1,000,000.00"},
		{-500, "-$5.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(core.Money{Cents: tt.cents}); got != tt.want {
			t.Fatalf("FormatMoney(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestBuildDefaultSnapshot(t *testing.T) {
	p := Build(snapshotWith(), Meta{Mode: "local", Source: "default", Degraded: true})

	assert.Equal(t, "$225.00", p.Summary.TotalIncome)
	assert.Equal(t, "$181.44", p.Summary.TotalExpenses)
	assert.Equal(t, "$43.56", p.Summary.MonthlyBalance)
	assert.False(t, p.Summary.BalanceNegative)
	assert.Len(t, p.Income.Lines, 3)
	assert.Equal(t, "$116.44", p.Fixed.Total)
	require.Len(t, p.Cards, 2)
	assert.Equal(t, "🎉 Entertainment", p.Categories[0].Label)
	assert.Empty(t, p.Journal)
	assert.Equal(t, PreviewEmpty, p.Preview.State)
	assert.Equal(t, "2026-03-01", p.Meta.RetrievedAt[:10])
	assert.True(t, p.Meta.Degraded)
}

func TestNewCardOverBudget(t *testing.T) {
	card := NewCard(core.CategoryBudget{Name: "Entertainment", Allocated: core.Money{Cents: 2000}, Spent: core.Money{Cents: 2500}})

	assert.Equal(t, 125.0, card.PercentUsed)
	assert.Equal(t, 100.0, card.BarWidth)
	assert.Equal(t, budget.StateDanger, card.State)
	assert.True(t, card.OverBudget)
	assert.Equal(t, "Over by $5.00", card.RemainingText)
}

func TestNewCardWithinBudget(t *testing.T) {
	card := NewCard(core.CategoryBudget{Name: "Books", Allocated: core.Money{Cents: 2000}, Spent: core.Money{Cents: 1500}})

	assert.Equal(t, 75.0, card.BarWidth)
	assert.Equal(t, budget.StateSafe, card.State)
	assert.Equal(t, "📦", card.Icon)
	assert.Equal(t, "$5.00 left", card.RemainingText)
}

func TestJournalNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := Journal([]core.ExpenseRecord{
		{Timestamp: base, Category: "Entertainment", Amount: core.Money{Cents: 1000}, Description: "cinema"},
		{Timestamp: base.Add(2 * time.Hour), Category: "Clothing/Personal", Amount: core.Money{Cents: 300}},
		{Timestamp: base.Add(time.Hour), Category: "Entertainment", Amount: core.Money{Cents: 1500}, Description: "concert"},
	})

	require.Len(t, entries, 3)
	assert.Equal(t, "No description", entries[0].Description)
	assert.Equal(t, "concert", entries[1].Description)
	assert.Equal(t, "cinema", entries[2].Description)
	assert.Equal(t, "-$15.00", entries[1].Amount)
}

func TestBuildPreview(t *testing.T) {
	snap := snapshotWith(core.ExpenseRecord{
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Category:  "Entertainment",
		Amount:    core.Money{Cents: 1500},
	})

	tests := []struct {
		name     string
		category string
		amount   string
		state    PreviewState
		detail   string
		submit   bool
	}{
		{"no input", "", "", PreviewEmpty, "", false},
		{"no category", "", "5", PreviewEmpty, "", false},
		{"fits exactly", "Entertainment", "5.00", PreviewFits, "You would have $0.00 left in Entertainment", true},
		{"fits with comma", "Entertainment", "2,50", PreviewFits, "You would have $2.50 left in Entertainment", true},
		{"exceeds", "Entertainment", "10", PreviewExceeds, "Only $5.00 available in Entertainment", true},
		{"negative amount", "Entertainment", "-3", PreviewInvalid, "", false},
		{"garbage amount", "Entertainment", "abc", PreviewInvalid, "", false},
		{"unknown category", "UnknownCat", "3", PreviewInvalid, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildPreview(snap, tt.category, tt.amount)
			assert.Equal(t, tt.state, p.State)
			assert.Equal(t, tt.submit, p.CanSubmit)
			if tt.detail != "" {
				assert.Equal(t, tt.detail, p.Detail)
			}
		})
	}
}
