package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"budgetdash/internal/core"
	ports "budgetdash/internal/sheets"

	_ "modernc.org/sqlite"
)

var _ ports.Backend = (*SQLiteRepository)(nil)

// SQLiteRepository is a ledger backend on a local SQLite file. The budget
// figures live in budget_lines, the ledger in expenses and the derived
// totals in category_spent.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadConfig implements sheets.ConfigReader
func (r *SQLiteRepository) ReadConfig(ctx context.Context) (core.BudgetConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT section, name, amount_cents FROM budget_lines ORDER BY position, id`)
	if err != nil {
		return core.BudgetConfig{}, fmt.Errorf("%w: query budget lines: %w", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var cfg core.BudgetConfig
	for rows.Next() {
		var section, name string
		var cents int64
		if err := rows.Scan(&section, &name, &cents); err != nil {
			return core.BudgetConfig{}, fmt.Errorf("%w: scan budget line: %v", core.ErrStoreFormat, err)
		}
		line := core.Line{Name: name, Amount: core.Money{Cents: cents}}
		switch section {
		case core.SectionIncome:
			cfg.Income = append(cfg.Income, line)
		case core.SectionFixed:
			cfg.Fixed = append(cfg.Fixed, line)
		case core.SectionCategory:
			cfg.Allocations = append(cfg.Allocations, line)
		}
	}
	if err := rows.Err(); err != nil {
		return core.BudgetConfig{}, fmt.Errorf("%w: iterate budget lines: %w", core.ErrStoreUnavailable, err)
	}
	if len(cfg.Allocations) == 0 {
		return core.BudgetConfig{}, fmt.Errorf("%w: no category allocations configured", core.ErrStoreFormat)
	}
	return cfg, nil
}

// ReplaceConfig overwrites every configured figure with cfg.
func (r *SQLiteRepository) ReplaceConfig(ctx context.Context, cfg core.BudgetConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", core.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_lines`); err != nil {
		return fmt.Errorf("%w: clear budget lines: %w", core.ErrStoreUnavailable, err)
	}
	sections := []struct {
		name  string
		lines []core.Line
	}{
		{core.SectionIncome, cfg.Income},
		{core.SectionFixed, cfg.Fixed},
		{core.SectionCategory, cfg.Allocations},
	}
	for _, s := range sections {
		for i, l := range s.lines {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budget_lines (section, name, amount_cents, position) VALUES (?, ?, ?, ?)`,
				s.name, l.Name, l.Amount.Cents, i+1); err != nil {
				return fmt.Errorf("%w: insert budget line %q: %w", core.ErrStoreUnavailable, l.Name, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit budget lines: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// ListExpenses implements sheets.LedgerReader
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT recorded_at, category, amount_cents, description FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query expenses: %w", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	out := make([]core.ExpenseRecord, 0)
	for rows.Next() {
		var at, category, description string
		var cents int64
		if err := rows.Scan(&at, &category, &cents, &description); err != nil {
			return nil, fmt.Errorf("%w: scan expense: %v", core.ErrStoreFormat, err)
		}
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("%w: expense timestamp %q: %v", core.ErrStoreFormat, at, err)
		}
		out = append(out, core.ExpenseRecord{
			Timestamp:   ts,
			Category:    category,
			Amount:      core.Money{Cents: cents},
			Description: description,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate expenses: %w", core.ErrStoreUnavailable, err)
	}
	return out, nil
}

// AppendExpense implements sheets.LedgerWriter
func (r *SQLiteRepository) AppendExpense(ctx context.Context, e core.ExpenseRecord) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (recorded_at, category, amount_cents, description) VALUES (?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.Category, e.Amount.Cents, e.Description)
	if err != nil {
		return "", fmt.Errorf("%w: insert expense: %w", core.ErrStoreUnavailable, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: expense id: %w", core.ErrStoreUnavailable, err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return strconv.FormatInt(id, 10), nil
}

// WriteSpent implements sheets.SpentWriter. The table is replaced as a whole
// so categories removed from the configuration disappear too.
func (r *SQLiteRepository) WriteSpent(ctx context.Context, totals []core.CategoryAmount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", core.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM category_spent`); err != nil {
		return fmt.Errorf("%w: clear spent: %w", core.ErrStoreUnavailable, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range totals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO category_spent (category, spent_cents, updated_at) VALUES (?, ?, ?)`,
			t.Name, t.Amount.Cents, now); err != nil {
			return fmt.Errorf("%w: write spent %q: %w", core.ErrStoreUnavailable, t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit spent: %w", core.ErrStoreUnavailable, err)
	}
	return nil
}

// Spent returns the persisted derived totals ordered by category.
func (r *SQLiteRepository) Spent(ctx context.Context) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, spent_cents FROM category_spent ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("%w: query spent: %w", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("%w: scan spent: %v", core.ErrStoreFormat, err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}
