package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"budgetdash/internal/core"
	ports "budgetdash/internal/sheets"
)

var _ ports.Backend = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	cfg   core.BudgetConfig
	items []core.ExpenseRecord
	spent []core.CategoryAmount
}

func New(cfg core.BudgetConfig) *Store {
	return &Store{cfg: cfg}
}

// NewFromFiles seeds the store from base/seed_budget.txt. Missing or
// unreadable seeds fall back to the bundled defaults.
func NewFromFiles(base string) *Store {
	cfg, err := ReadSeed(base)
	if err != nil {
		cfg = core.DefaultConfig()
	}
	return New(cfg)
}

// ReadSeed parses base/seed_budget.txt, one "section | name | amount"
// line per figure. A missing file returns an error wrapping
// os.ErrNotExist.
func ReadSeed(base string) (core.BudgetConfig, error) {
	lines, err := readLines(filepath.Join(base, "seed_budget.txt"))
	if err != nil {
		return core.BudgetConfig{}, err
	}
	cfg, err := parseSeed(lines)
	if err != nil {
		return core.BudgetConfig{}, err
	}
	if len(cfg.Allocations) == 0 {
		return core.BudgetConfig{}, fmt.Errorf("seed in %s has no category lines", base)
	}
	return cfg, nil
}

// ReadConfig returns a copy of the configured figures.
func (s *Store) ReadConfig(_ context.Context) (core.BudgetConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.BudgetConfig{
		Income:      append([]core.Line(nil), s.cfg.Income...),
		Fixed:       append([]core.Line(nil), s.cfg.Fixed...),
		Allocations: append([]core.Line(nil), s.cfg.Allocations...),
	}, nil
}

// ListExpenses returns the ledger in append order.
func (s *Store) ListExpenses(_ context.Context) ([]core.ExpenseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseRecord{}, s.items...), nil
}

// AppendExpense stores the record and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, r core.ExpenseRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// WriteSpent replaces the stored derived totals.
func (s *Store) WriteSpent(_ context.Context, totals []core.CategoryAmount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spent = append([]core.CategoryAmount(nil), totals...)
	return nil
}

// Spent returns the last derived totals written to the store.
func (s *Store) Spent() []core.CategoryAmount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.CategoryAmount(nil), s.spent...)
}

func parseSeed(lines []string) (core.BudgetConfig, error) {
	var cfg core.BudgetConfig
	for _, line := range lines {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			return core.BudgetConfig{}, fmt.Errorf("invalid seed line %q", line)
		}
		name := strings.TrimSpace(parts[1])
		amt, err := core.ParseMoney(parts[2])
		if err != nil {
			return core.BudgetConfig{}, fmt.Errorf("seed line %q: %w", line, err)
		}
		l := core.Line{Name: name, Amount: amt}
		switch strings.ToLower(strings.TrimSpace(parts[0])) {
		case core.SectionIncome:
			cfg.Income = append(cfg.Income, l)
		case core.SectionFixed:
			cfg.Fixed = append(cfg.Fixed, l)
		case core.SectionCategory:
			cfg.Allocations = append(cfg.Allocations, l)
		default:
			return core.BudgetConfig{}, fmt.Errorf("unknown section in seed line %q", line)
		}
	}
	return cfg, cfg.Validate()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
