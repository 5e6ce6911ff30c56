// Package ledger implements the ledger store: the authoritative owner of
// the budget figures, the expense ledger and the derived spent totals.
//
// Spent totals are never trusted from storage. Every read recomputes them
// from the ledger and every append re-derives and persists them again, so a
// failed or skipped derived write heals on the next append or Recompute.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"budgetdash/internal/budget"
	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/metrics"
	ports "budgetdash/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// EventPublisher announces records that reached the ledger.
type EventPublisher interface {
	PublishExpenseAppended(ctx context.Context, rec core.ExpenseRecord, rowRef string) error
}

// Store serves snapshots and appends over a pluggable backend.
type Store struct {
	backend    ports.Backend
	now        func() time.Time
	publisher  EventPublisher
	logger     *log.Logger
	structured *log.StructuredLogger
	metrics    *metrics.Metrics
	reads      singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp records and snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPublisher enables ExpenseAppended events.
func WithPublisher(p EventPublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithLogger sets the logger; the component is forced to "ledger".
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(backend ports.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger)
	}
	s.structured = log.NewStructuredLogger(s.logger)
	return s
}

// GetSnapshot reads the configured figures and the whole ledger and returns
// a freshly derived snapshot. Concurrent calls share one backend read.
func (s *Store) GetSnapshot(ctx context.Context) (core.BudgetSnapshot, error) {
	started := time.Now()
	v, err, _ := s.reads.Do("snapshot", func() (interface{}, error) {
		return s.readSnapshot(ctx)
	})
	s.metrics.ObserveLedger(log.OpRead, started, err)
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	return v.(core.BudgetSnapshot), nil
}

func (s *Store) readSnapshot(ctx context.Context) (core.BudgetSnapshot, error) {
	cfg, err := s.readConfig(ctx)
	if err != nil {
		return core.BudgetSnapshot{}, err
	}
	records, err := s.backend.ListExpenses(ctx)
	if err != nil {
		return core.BudgetSnapshot{}, fmt.Errorf("list expenses: %w", err)
	}
	return budget.Reconcile(core.ConfigSnapshot(cfg), records, s.now().UTC()), nil
}

func (s *Store) readConfig(ctx context.Context) (core.BudgetConfig, error) {
	cfg, err := s.backend.ReadConfig(ctx)
	if err != nil {
		return core.BudgetConfig{}, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return core.BudgetConfig{}, err
	}
	return cfg, nil
}

// AppendExpense validates the candidate, appends it to the ledger and
// re-derives the persisted spent totals. Nothing is written when
// validation fails. A failure of the derived write is logged and counted
// but does not fail the append.
func (s *Store) AppendExpense(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error) {
	started := time.Now()
	rec, err := s.appendExpense(ctx, category, amount, strings.TrimSpace(description))
	s.metrics.ObserveLedger(log.OpAppend, started, err)
	return rec, err
}

func (s *Store) appendExpense(ctx context.Context, category string, amount core.Money, description string) (core.ExpenseRecord, error) {
	cfg, err := s.readConfig(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := core.ValidateExpense(category, amount, description, cfg.CategoryNames()); err != nil {
		return core.ExpenseRecord{}, err
	}

	rec := core.ExpenseRecord{
		Timestamp:   s.now().UTC(),
		Category:    category,
		Amount:      amount,
		Description: description,
	}
	ref, err := s.backend.AppendExpense(ctx, rec)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("append expense: %w", err)
	}
	s.structured.LogExpenseAppended(ctx, rec.Category, rec.Amount.Cents, rec.Description, ref)

	if _, err := s.recompute(ctx, cfg); err != nil {
		s.metrics.SpentWriteFailed()
		s.structured.LogError(ctx, "Spent totals left stale after append", err,
			log.ComponentLedger, log.OpRecompute, log.NewFields().WithExpense(rec.Category, rec.Amount.Cents, rec.Description))
	}

	if s.publisher != nil {
		err := s.publisher.PublishExpenseAppended(ctx, rec, ref)
		s.metrics.EventPublished(err)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to publish expense appended event",
				log.FieldRowRef, ref, log.FieldError, err)
		}
	}
	return rec, nil
}

// Recompute re-derives every category's spent total from the ledger and
// persists the result.
func (s *Store) Recompute(ctx context.Context) ([]core.CategoryAmount, error) {
	started := time.Now()
	cfg, err := s.readConfig(ctx)
	if err == nil {
		var totals []core.CategoryAmount
		totals, err = s.recompute(ctx, cfg)
		s.metrics.ObserveLedger(log.OpRecompute, started, err)
		return totals, err
	}
	s.metrics.ObserveLedger(log.OpRecompute, started, err)
	return nil, err
}

func (s *Store) recompute(ctx context.Context, cfg core.BudgetConfig) ([]core.CategoryAmount, error) {
	records, err := s.backend.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	totals := core.SpentByCategory(records, cfg.CategoryNames())
	if err := s.backend.WriteSpent(ctx, totals); err != nil {
		return nil, fmt.Errorf("write spent: %w", err)
	}
	return totals, nil
}

// Ready reports whether the backend can serve the configured figures.
func (s *Store) Ready(ctx context.Context) error {
	_, err := s.readConfig(ctx)
	return err
}
