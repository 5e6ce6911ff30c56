// Package backend selects and opens the ledger store's backing storage
// from configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"budgetdash/internal/config"
	"budgetdash/internal/log"
	ports "budgetdash/internal/sheets"
	gsheet "budgetdash/internal/sheets/google"
	"budgetdash/internal/sheets/memory"
	"budgetdash/internal/storage"
)

// Type names a backend implementation.
type Type string

const (
	SQLite Type = "sqlite"
	Sheets Type = "sheets"
	Memory Type = "memory"
)

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Sheets, Memory:
		return true
	default:
		return false
	}
}

// CleanupFunc releases whatever the backend holds open.
type CleanupFunc func() error

// Result is an opened backend plus its cleanup.
type Result struct {
	Type    Type
	Backend ports.Backend
	Cleanup CleanupFunc
}

// Close runs the cleanup, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Open builds the backend named by cfg.DataBackend.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app config is nil")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	t := Type(cfg.DataBackend)
	switch t {
	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		if err := applySeed(ctx, repo, cfg.SeedDir, logger); err != nil {
			repo.Close()
			return nil, err
		}
		logger.Info("Initialized SQLite backend", log.FieldBackend, t, "db_path", cfg.SQLiteDBPath)
		return &Result{Type: t, Backend: repo, Cleanup: repo.Close}, nil

	case Sheets:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets backend", log.FieldBackend, t, "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &Result{Type: t, Backend: cli}, nil

	case Memory:
		dir := cfg.SeedDir
		if dir == "" {
			dir = "data"
		}
		logger.Info("Initialized memory backend", log.FieldBackend, t, "seed_dir", dir)
		return &Result{Type: t, Backend: memory.NewFromFiles(dir)}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}

// applySeed replaces the SQLite budget figures with dir/seed_budget.txt
// when that file exists. Without a seed the migrated defaults stay.
func applySeed(ctx context.Context, repo *storage.SQLiteRepository, dir string, logger *log.Logger) error {
	if dir == "" {
		return nil
	}
	seed, err := memory.ReadSeed(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read budget seed: %w", err)
	}
	if err := repo.ReplaceConfig(ctx, seed); err != nil {
		return fmt.Errorf("apply budget seed: %w", err)
	}
	logger.Info("Applied budget seed", log.FieldBackend, SQLite, "seed_dir", dir, "categories", len(seed.Allocations))
	return nil
}
