package dashboard

import (
	"budgetdash/internal/budget"
	"budgetdash/internal/core"
)

// PreviewState is the outcome of checking a candidate expense.
type PreviewState string

const (
	PreviewEmpty   PreviewState = "empty"
	PreviewFits    PreviewState = "fits"
	PreviewExceeds PreviewState = "exceeds"
	PreviewInvalid PreviewState = "invalid"
)

// Preview tells the user whether a candidate expense fits the category.
type Preview struct {
	State     PreviewState
	Icon      string
	Message   string
	Detail    string
	CanSubmit bool
}

// BuildPreview checks a candidate amount (as typed) against the named
// category of snap. Missing input yields PreviewEmpty; an unparseable or
// non-positive amount or an unknown category yields PreviewInvalid.
func BuildPreview(snap core.BudgetSnapshot, category, amount string) Preview {
	if category == "" || amount == "" {
		return Preview{State: PreviewEmpty, Icon: "🤔", Message: "Enter an amount and a category to check"}
	}
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return Preview{State: PreviewInvalid, Icon: "❌", Message: "Amount must be a positive number"}
	}
	cat, ok := snap.Category(category)
	if !ok {
		return Preview{State: PreviewInvalid, Icon: "❌", Message: "Unknown category " + category}
	}
	m := core.Money{Cents: cents}
	remaining := cat.Allocated.Sub(cat.Spent)
	if budget.FitsBudget(m, cat) {
		return Preview{
			State:     PreviewFits,
			Icon:      "✅",
			Message:   "This expense fits your budget.",
			Detail:    "You would have " + FormatMoney(remaining.Sub(m)) + " left in " + category,
			CanSubmit: true,
		}
	}
	return Preview{
		State:     PreviewExceeds,
		Icon:      "⚠️",
		Message:   "This expense exceeds your budget.",
		Detail:    "Only " + FormatMoney(remaining) + " available in " + category,
		CanSubmit: true,
	}
}
