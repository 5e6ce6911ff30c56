// Package dashboard turns a budget snapshot into the values the page
// renders. Nothing here performs I/O.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"budgetdash/internal/budget"
	"budgetdash/internal/core"
)

const defaultIcon = "📦"

var categoryIcons = map[string]string{
	"Entertainment":     "🎉",
	"Clothing/Personal": "👕",
	"Internet/Phone":    "📱",
	"Transport":         "🚌",
	"Debts":             "💳",
	"Scheduled savings": "💰",
}

// Icon returns the emoji shown next to a category name.
func Icon(category string) string {
	if icon, ok := categoryIcons[category]; ok {
		return icon
	}
	return defaultIcon
}

// FormatMoney renders an amount as "$1,234.56"; negatives as "-$12.00".
func FormatMoney(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := core.Money{Cents: cents}.String()
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

type (
	// LineView is one row of the income or fixed-expense block.
	LineView struct {
		Name   string
		Amount string
	}

	// BlockView is a rendered block with its derived total.
	BlockView struct {
		Lines []LineView
		Total string
	}

	// SummaryView holds the three headline figures.
	SummaryView struct {
		TotalIncome     string
		TotalExpenses   string
		MonthlyBalance  string
		BalanceNegative bool
	}

	// Card is one category budget card.
	Card struct {
		Name          string
		Icon          string
		Spent         string
		Allocated     string
		PercentUsed   float64
		BarWidth      float64
		State         budget.State
		Remaining     string
		OverBudget    bool
		RemainingText string
	}

	// JournalEntry is one ledger record as listed on the page.
	JournalEntry struct {
		Category    string
		Icon        string
		Description string
		Amount      string
		When        string
		Timestamp   time.Time
	}

	// CategoryOption feeds the category selector.
	CategoryOption struct {
		Name  string
		Label string
	}

	// Meta describes where the snapshot came from.
	Meta struct {
		Mode        string
		State       string
		Source      string
		Endpoint    string
		Degraded    bool
		RetrievedAt string
	}

	// Page is the complete view model for the dashboard.
	Page struct {
		Income     BlockView
		Fixed      BlockView
		Summary    SummaryView
		Cards      []Card
		Journal    []JournalEntry
		Categories []CategoryOption
		Preview    Preview
		Meta       Meta
	}
)

// Build assembles the page for snap. meta is passed through unchanged
// apart from the formatted retrieval time.
func Build(snap core.BudgetSnapshot, meta Meta) Page {
	if !snap.RetrievedAt.IsZero() {
		meta.RetrievedAt = snap.RetrievedAt.Local().Format("2006-01-02 15:04")
	}
	p := Page{
		Income:  blockView(snap.Income),
		Fixed:   blockView(snap.FixedExpenses),
		Summary: summaryView(snap.Summary),
		Journal: Journal(snap.ExpenseRecords),
		Preview: BuildPreview(snap, "", ""),
		Meta:    meta,
	}
	for _, c := range snap.CategoryBudgets {
		p.Cards = append(p.Cards, NewCard(c))
		p.Categories = append(p.Categories, CategoryOption{Name: c.Name, Label: Icon(c.Name) + " " + c.Name})
	}
	return p
}

func blockView(b core.Block) BlockView {
	v := BlockView{Total: FormatMoney(b.Total)}
	for _, it := range b.Items {
		v.Lines = append(v.Lines, LineView{Name: it.Name, Amount: FormatMoney(it.Amount)})
	}
	return v
}

func summaryView(s core.Summary) SummaryView {
	return SummaryView{
		TotalIncome:     FormatMoney(s.TotalIncome),
		TotalExpenses:   FormatMoney(s.TotalExpenses),
		MonthlyBalance:  FormatMoney(s.MonthlyBalance),
		BalanceNegative: s.MonthlyBalance.Cents < 0,
	}
}

// NewCard derives a budget card. The progress bar is capped at 100%.
func NewCard(c core.CategoryBudget) Card {
	st := budget.CategoryStatus(c)
	width := st.PercentUsed
	if width > 100 {
		width = 100
	}
	card := Card{
		Name:        c.Name,
		Icon:        Icon(c.Name),
		Spent:       FormatMoney(c.Spent),
		Allocated:   FormatMoney(c.Allocated),
		PercentUsed: st.PercentUsed,
		BarWidth:    width,
		State:       st.State,
		Remaining:   FormatMoney(st.Remaining),
		OverBudget:  st.Remaining.Cents < 0,
	}
	if card.OverBudget {
		card.RemainingText = "Over by " + FormatMoney(core.Money{Cents: -st.Remaining.Cents})
	} else {
		card.RemainingText = FormatMoney(st.Remaining) + " left"
	}
	return card
}

// Journal lists records newest first. Records sharing a timestamp keep
// their ledger order.
func Journal(records []core.ExpenseRecord) []JournalEntry {
	sorted := append([]core.ExpenseRecord{}, records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	out := make([]JournalEntry, 0, len(sorted))
	for _, r := range sorted {
		desc := r.Description
		if desc == "" {
			desc = "No description"
		}
		out = append(out, JournalEntry{
			Category:    r.Category,
			Icon:        Icon(r.Category),
			Description: desc,
			Amount:      "-" + FormatMoney(r.Amount),
			When:        r.Timestamp.Local().Format("02 Jan 15:04"),
			Timestamp:   r.Timestamp,
		})
	}
	return out
}
