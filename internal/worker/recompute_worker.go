package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetdash/internal/amqp"
	"budgetdash/internal/core"
	"budgetdash/internal/metrics"
)

// Recomputer re-derives and persists the spent totals from the ledger.
type Recomputer interface {
	Recompute(ctx context.Context) ([]core.CategoryAmount, error)
}

// RecomputeWorker refreshes the stored spent totals whenever an
// ExpenseAppended event arrives. The ledger store already recomputes on
// append; the worker repairs totals an append left stale.
type RecomputeWorker struct {
	store   Recomputer
	metrics *metrics.Metrics
}

func NewRecomputeWorker(store Recomputer, m *metrics.Metrics) *RecomputeWorker {
	return &RecomputeWorker{store: store, metrics: m}
}

// HandleExpenseAppended processes a single event from AMQP
func (w *RecomputeWorker) HandleExpenseAppended(ctx context.Context, msg *amqp.ExpenseAppendedMessage) error {
	slog.InfoContext(ctx, "Processing expense appended message",
		"row_ref", msg.RowRef,
		"category", msg.Expense.Category,
		"amount_cents", msg.Expense.Amount.Cents)

	if err := w.recompute(ctx); err != nil {
		return fmt.Errorf("recompute after %s: %w", msg.RowRef, err)
	}
	return nil
}

// StartupRecompute repairs totals left stale while the worker was down.
func (w *RecomputeWorker) StartupRecompute(ctx context.Context) error {
	if err := w.recompute(ctx); err != nil {
		return fmt.Errorf("startup recompute: %w", err)
	}
	slog.InfoContext(ctx, "Startup recompute completed")
	return nil
}

func (w *RecomputeWorker) recompute(ctx context.Context) error {
	totals, err := w.store.Recompute(ctx)
	w.metrics.WorkerRecompute(err)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Spent totals recomputed", "categories", len(totals))
	return nil
}
