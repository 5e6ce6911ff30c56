package google

import (
	"fmt"
	"strings"
	"time"

	"budgetdash/internal/core"

	"github.com/shopspring/decimal"
)

// Timestamp layouts accepted in the Expenses sheet. Rows written by this
// package use RFC3339; the others cover rows typed in by hand.
var ledgerTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
}

// parseBudgetRows converts Budget sheet rows ("section | name | amount")
// into a BudgetConfig. Blank rows and a leading header row are skipped.
func parseBudgetRows(values [][]interface{}) (core.BudgetConfig, error) {
	var cfg core.BudgetConfig
	for i, row := range values {
		cols := toStrings(row)
		section := strings.ToLower(safeGet(cols, 0))
		name := safeGet(cols, 1)
		if section == "" && name == "" {
			continue
		}
		if i == 0 && section == "section" {
			continue
		}
		if name == "" {
			return core.BudgetConfig{}, fmt.Errorf("%w: budget row %d has no name", core.ErrStoreFormat, i+1)
		}
		var amount interface{}
		if len(row) > 2 {
			amount = row[2]
		}
		m, err := cellMoney(amount)
		if err != nil {
			return core.BudgetConfig{}, fmt.Errorf("%w: budget row %d (%s): %v", core.ErrStoreFormat, i+1, name, err)
		}
		line := core.Line{Name: name, Amount: m}
		switch section {
		case core.SectionIncome:
			cfg.Income = append(cfg.Income, line)
		case core.SectionFixed:
			cfg.Fixed = append(cfg.Fixed, line)
		case core.SectionCategory:
			cfg.Allocations = append(cfg.Allocations, line)
		default:
			return core.BudgetConfig{}, fmt.Errorf("%w: budget row %d has unknown section %q", core.ErrStoreFormat, i+1, section)
		}
	}
	if len(cfg.Allocations) == 0 {
		return core.BudgetConfig{}, fmt.Errorf("%w: no category allocations configured", core.ErrStoreFormat)
	}
	if err := cfg.Validate(); err != nil {
		return core.BudgetConfig{}, err
	}
	return cfg, nil
}

// parseLedgerRows converts Expenses sheet rows
// ("timestamp | category | amount | description") into records in sheet
// order. The header row and rows without a timestamp are skipped.
func parseLedgerRows(values [][]interface{}) ([]core.ExpenseRecord, error) {
	out := make([]core.ExpenseRecord, 0, len(values))
	for i, row := range values {
		cols := toStrings(row)
		ts := safeGet(cols, 0)
		if ts == "" {
			continue
		}
		if i == 0 && strings.EqualFold(ts, "timestamp") {
			continue
		}
		at, err := parseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("%w: expense row %d: %v", core.ErrStoreFormat, i+1, err)
		}
		var amount interface{}
		if len(row) > 2 {
			amount = row[2]
		}
		m, err := cellMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: expense row %d: %v", core.ErrStoreFormat, i+1, err)
		}
		if m.Cents < 0 {
			return nil, fmt.Errorf("%w: expense row %d: negative amount %s", core.ErrStoreFormat, i+1, m)
		}
		out = append(out, core.ExpenseRecord{
			Timestamp:   at,
			Category:    safeGet(cols, 1),
			Amount:      m,
			Description: safeGet(cols, 3),
		})
	}
	return out, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range ledgerTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// cellMoney reads a monetary cell. Unformatted numeric cells arrive as
// float64; hand-typed cells may be strings with a currency symbol.
func cellMoney(v interface{}) (core.Money, error) {
	switch x := v.(type) {
	case nil:
		return core.Money{}, fmt.Errorf("missing amount")
	case float64:
		return core.NewMoney(decimal.NewFromFloat(x)), nil
	case int:
		return core.Money{Cents: int64(x) * 100}, nil
	case int64:
		return core.Money{Cents: x * 100}, nil
	case string:
		s := strings.TrimSpace(x)
		s = strings.NewReplacer("$", "", "€", "", " ", "", "\u00a0", "").Replace(s)
		if s == "" {
			return core.Money{}, fmt.Errorf("missing amount")
		}
		return core.ParseMoney(s)
	default:
		return core.ParseMoney(fmt.Sprint(x))
	}
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
