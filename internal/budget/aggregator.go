// Package budget derives presentation-ready figures from a snapshot.
// Everything here is pure: no I/O and no stored state.
package budget

import (
	"time"

	"budgetdash/internal/core"

	"github.com/shopspring/decimal"
)

// State classifies how much of a category allocation has been used.
type State string

const (
	StateSafe    State = "safe"
	StateWarning State = "warning"
	StateDanger  State = "danger"
)

// Status is the derived view of one category budget.
type Status struct {
	PercentUsed float64    `json:"percentUsed"`
	Remaining   core.Money `json:"remaining"`
	State       State      `json:"state"`
}

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(75)
)

// Summarize computes the headline figures. Income is the income block total;
// expenses are the fixed block total plus every category allocation.
func Summarize(s core.BudgetSnapshot) core.Summary {
	expenses := s.FixedExpenses.Total
	for _, c := range s.CategoryBudgets {
		expenses = expenses.Add(c.Allocated)
	}
	return core.Summary{
		TotalIncome:    s.Income.Total,
		TotalExpenses:  expenses,
		MonthlyBalance: s.Income.Total.Sub(expenses),
	}
}

// PercentUsed returns 100*spent/allocated, or zero when nothing is allocated.
func PercentUsed(c core.CategoryBudget) decimal.Decimal {
	if c.Allocated.Cents == 0 {
		return decimal.Zero
	}
	return c.Spent.Decimal().Mul(hundred).Div(c.Allocated.Decimal())
}

// CategoryStatus derives percent used, remaining and state for a category.
func CategoryStatus(c core.CategoryBudget) Status {
	p := PercentUsed(c)
	st := StateSafe
	switch {
	case p.GreaterThan(hundred):
		st = StateDanger
	case p.GreaterThan(warningThreshold):
		st = StateWarning
	}
	return Status{
		PercentUsed: p.Round(2).InexactFloat64(),
		Remaining:   c.Allocated.Sub(c.Spent),
		State:       st,
	}
}

// FitsBudget reports whether amount can still be spent in c without going
// over its allocation. It uses the remaining amount before the candidate.
func FitsBudget(amount core.Money, c core.CategoryBudget) bool {
	return amount.Cents <= c.Allocated.Sub(c.Spent).Cents
}

// Reconcile rebuilds base around a ledger: records replace the snapshot's
// records, every category's spent is recomputed from them and the summary
// is derived again. base is left untouched.
func Reconcile(base core.BudgetSnapshot, records []core.ExpenseRecord, at time.Time) core.BudgetSnapshot {
	out := base
	out.ExpenseRecords = append([]core.ExpenseRecord{}, records...)
	out.CategoryBudgets = core.ApplyLedger(base.CategoryBudgets, records)
	out.Income = core.NewBlock(base.Income.Items)
	out.FixedExpenses = core.NewBlock(base.FixedExpenses.Items)
	out.Summary = Summarize(out)
	out.RetrievedAt = at
	return out
}
