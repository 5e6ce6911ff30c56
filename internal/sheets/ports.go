package sheets

import (
	"context"

	"budgetdash/internal/core"
)

// Ports for the ledger store's backing storage.
type (
	// ConfigReader returns the configured income, fixed-expense and category
	// allocation figures.
	ConfigReader interface {
		ReadConfig(ctx context.Context) (core.BudgetConfig, error)
	}

	// LedgerReader returns every expense record in ledger order.
	LedgerReader interface {
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	// LedgerWriter appends one record to the ledger.
	LedgerWriter interface {
		AppendExpense(ctx context.Context, r core.ExpenseRecord) (rowRef string, err error)
	}

	// SpentWriter persists the derived per-category spent totals.
	SpentWriter interface {
		WriteSpent(ctx context.Context, totals []core.CategoryAmount) error
	}

	Backend interface {
		ConfigReader
		LedgerReader
		LedgerWriter
		SpentWriter
	}
)
