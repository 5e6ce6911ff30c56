package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"budgetdash/internal/config"
	"budgetdash/internal/log"
)

func quiet() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func TestOpenMemoryUsesSeed(t *testing.T) {
	dir := t.TempDir()
	seed := "income | Salary | 1000\nfixed | Rent | 400\ncategory | Food | 300\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_budget.txt"), []byte(seed), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	res, err := Open(context.Background(), &config.Config{DataBackend: "memory", SeedDir: dir}, quiet())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Close()

	if res.Type != Memory {
		t.Fatalf("type = %s", res.Type)
	}
	cfg, err := res.Backend.ReadConfig(context.Background())
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if len(cfg.Allocations) != 1 || cfg.Allocations[0].Name != "Food" {
		t.Fatalf("allocations = %+v", cfg.Allocations)
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := Open(context.Background(), &config.Config{DataBackend: "sqlite", SQLiteDBPath: path}, quiet())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.Type != SQLite {
		t.Fatalf("type = %s", res.Type)
	}
	cfg, err := res.Backend.ReadConfig(context.Background())
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if len(cfg.Allocations) == 0 {
		t.Fatal("sqlite backend not seeded")
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestOpenSQLiteAppliesSeed(t *testing.T) {
	dir := t.TempDir()
	seed := "income | Salary | 2000\ncategory | Travel | 150\ncategory | Books | 40\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_budget.txt"), []byte(seed), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	res, err := Open(context.Background(), &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(dir, "ledger.db"),
		SeedDir:      dir,
	}, quiet())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Close()

	cfg, err := res.Backend.ReadConfig(context.Background())
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	names := cfg.CategoryNames()
	if len(names) != 2 || names[0] != "Travel" || names[1] != "Books" {
		t.Fatalf("categories = %v", names)
	}
	if len(cfg.Fixed) != 0 || cfg.Income[0].Amount.Cents != 200000 {
		t.Fatalf("unexpected seeded figures: %+v", cfg)
	}
}

func TestOpenSQLiteRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_budget.txt"), []byte("category | Food | lots\n"), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	_, err := Open(context.Background(), &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(dir, "ledger.db"),
		SeedDir:      dir,
	}, quiet())
	if err == nil {
		t.Fatal("expected error for malformed seed")
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{DataBackend: "csv"}, quiet()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Open(context.Background(), nil, quiet()); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestTypeIsValid(t *testing.T) {
	for _, tt := range []struct {
		t    Type
		want bool
	}{{SQLite, true}, {Sheets, true}, {Memory, true}, {"csv", false}} {
		if got := tt.t.IsValid(); got != tt.want {
			t.Errorf("%q.IsValid() = %v", tt.t, got)
		}
	}
}
