package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Section names used by backends to tag configured budget lines.
const (
	SectionIncome   = "income"
	SectionFixed    = "fixed"
	SectionCategory = "category"
)

const maxDescriptionLen = 200

type (
	// ExpenseRecord is one immutable ledger entry.
	ExpenseRecord struct {
		Timestamp   time.Time `json:"timestamp"`
		Category    string    `json:"category"`
		Amount      Money     `json:"amount"`
		Description string    `json:"description"`
	}

	// Line is a named amount inside an income or fixed-expense block, or a
	// category allocation in a BudgetConfig.
	Line struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	// Block is a flat list of named sub-amounts and their total.
	Block struct {
		Items []Line `json:"items"`
		Total Money  `json:"total"`
	}

	IncomeBlock       = Block
	FixedExpenseBlock = Block

	// CategoryBudget pairs a category allocation with the amount spent so far.
	// Spent is derived from the ledger and never stored independently.
	CategoryBudget struct {
		Name      string `json:"name"`
		Allocated Money  `json:"allocatedAmount"`
		Spent     Money  `json:"spentAmount"`
	}

	// CategoryAmount represents an amount aggregated by category name.
	CategoryAmount struct {
		Name   string `json:"name"`
		Amount Money  `json:"amount"`
	}

	// BudgetConfig holds the configured figures a backend stores alongside
	// the ledger.
	BudgetConfig struct {
		Income      []Line
		Fixed       []Line
		Allocations []Line
	}
)

var (
	ErrValidation         = errors.New("validation error")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrStoreFormat        = errors.New("store format error")
	ErrActionUnrecognized = errors.New("action unrecognized")

	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrUnknownCategory    = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, maxDescriptionLen)
)

// NewBlock builds a block whose total is the sum of its items.
func NewBlock(items []Line) Block {
	b := Block{Items: append([]Line{}, items...)}
	for _, it := range items {
		b.Total = b.Total.Add(it.Amount)
	}
	return b
}

// CategoryNames returns the configured category names in order.
func (c BudgetConfig) CategoryNames() []string {
	out := make([]string, 0, len(c.Allocations))
	for _, a := range c.Allocations {
		out = append(out, a.Name)
	}
	return out
}

// Validate checks the configuration for duplicate or empty category names.
func (c BudgetConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Allocations))
	for _, a := range c.Allocations {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return fmt.Errorf("%w: empty category name", ErrStoreFormat)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate category %q", ErrStoreFormat, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidateExpense checks a candidate expense against the known categories.
// Category matching is exact and case-sensitive.
func ValidateExpense(category string, amount Money, description string, categories []string) error {
	if err := ValidateCandidate(amount, description); err != nil {
		return err
	}
	for _, c := range categories {
		if c == category {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
}

// ValidateCandidate checks the parts of an expense that do not depend on
// the configured categories. The description limit counts characters.
func ValidateCandidate(amount Money, description string) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}

// SpentByCategory sums ledger amounts for each of the given category names.
// Records whose category matches none of the names are ignored.
func SpentByCategory(records []ExpenseRecord, names []string) []CategoryAmount {
	sums := make(map[string]int64, len(names))
	for _, r := range records {
		sums[r.Category] += r.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(names))
	for _, n := range names {
		out = append(out, CategoryAmount{Name: n, Amount: Money{Cents: sums[n]}})
	}
	return out
}

// ApplyLedger returns a copy of cats with every Spent recomputed from records.
// Both the ledger store and the client fallback path derive spent totals here.
func ApplyLedger(cats []CategoryBudget, records []ExpenseRecord) []CategoryBudget {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	spent := SpentByCategory(records, names)
	out := make([]CategoryBudget, len(cats))
	for i, c := range cats {
		out[i] = CategoryBudget{Name: c.Name, Allocated: c.Allocated, Spent: spent[i].Amount}
	}
	return out
}
