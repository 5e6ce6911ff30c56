package core

import "time"

// Summary is the headline figure set of a snapshot.
type Summary struct {
	TotalIncome    Money `json:"totalIncome"`
	TotalExpenses  Money `json:"totalExpenses"`
	MonthlyBalance Money `json:"monthlyBalance"`
}

// BudgetSnapshot is the aggregate returned by a read. It is built fresh on
// every read and must not be mutated afterwards.
type BudgetSnapshot struct {
	Income          IncomeBlock       `json:"income"`
	FixedExpenses   FixedExpenseBlock `json:"fixedExpenses"`
	CategoryBudgets []CategoryBudget  `json:"categoryBudgets"`
	Summary         Summary           `json:"summary"`
	ExpenseRecords  []ExpenseRecord   `json:"expenseRecords"`
	RetrievedAt     time.Time         `json:"retrievedAt"`
}

// ConfigSnapshot turns configured figures into a snapshot with zeroed
// actuals: no records, every Spent zero, no summary.
func ConfigSnapshot(cfg BudgetConfig) BudgetSnapshot {
	cats := make([]CategoryBudget, 0, len(cfg.Allocations))
	for _, a := range cfg.Allocations {
		cats = append(cats, CategoryBudget{Name: a.Name, Allocated: a.Amount})
	}
	return BudgetSnapshot{
		Income:          NewBlock(cfg.Income),
		FixedExpenses:   NewBlock(cfg.Fixed),
		CategoryBudgets: cats,
		ExpenseRecords:  []ExpenseRecord{},
	}
}

// CategoryNames lists the snapshot's category names in order.
func (s BudgetSnapshot) CategoryNames() []string {
	out := make([]string, 0, len(s.CategoryBudgets))
	for _, c := range s.CategoryBudgets {
		out = append(out, c.Name)
	}
	return out
}

// Category looks up a category budget by exact name.
func (s BudgetSnapshot) Category(name string) (CategoryBudget, bool) {
	for _, c := range s.CategoryBudgets {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryBudget{}, false
}
