package core

// DefaultConfig returns the bundled example figures used to seed new
// backends and as the client's last-resort snapshot.
func DefaultConfig() BudgetConfig {
	return BudgetConfig{
		Income: []Line{
			{Name: "Net salary", Amount: Money{Cents: 20000}},
			{Name: "Extra income", Amount: Money{Cents: 500}},
			{Name: "Other income", Amount: Money{Cents: 2000}},
		},
		Fixed: []Line{
			{Name: "Internet/Phone", Amount: Money{Cents: 1000}},
			{Name: "Transport", Amount: Money{Cents: 2000}},
			{Name: "Debts", Amount: Money{Cents: 4644}},
			{Name: "Scheduled savings", Amount: Money{Cents: 4000}},
		},
		Allocations: []Line{
			{Name: "Entertainment", Amount: Money{Cents: 2000}},
			{Name: "Clothing/Personal", Amount: Money{Cents: 4500}},
		},
	}
}
