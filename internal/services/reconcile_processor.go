// Package services provides background processes that run next to the
// HTTP surfaces.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetdash/internal/core"
)

// Recomputer re-derives and persists the spent totals from the ledger.
type Recomputer interface {
	Recompute(ctx context.Context) ([]core.CategoryAmount, error)
}

// ReconcileProcessorConfig holds configuration for the reconcile processor
type ReconcileProcessorConfig struct {
	// PollInterval is how often the stored totals are re-derived (default: 5m)
	PollInterval time.Duration
}

// DefaultReconcileProcessorConfig returns sensible defaults
func DefaultReconcileProcessorConfig() ReconcileProcessorConfig {
	return ReconcileProcessorConfig{
		PollInterval: 5 * time.Minute,
	}
}

// ReconcileProcessor periodically recomputes the persisted spent totals.
// It backs up the event-driven worker when no broker is configured or
// events were lost.
type ReconcileProcessor struct {
	store  Recomputer
	config ReconcileProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	runs    int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconcileProcessor creates a new reconcile processor
func NewReconcileProcessor(store Recomputer, config ReconcileProcessorConfig) *ReconcileProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultReconcileProcessorConfig().PollInterval
	}
	return &ReconcileProcessor{
		store:  store,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ReconcileProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("reconcile processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Reconcile processor started",
		"poll_interval", p.config.PollInterval)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ReconcileProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Reconcile processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Reconcile processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ReconcileProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs returns how many reconcile passes have completed.
func (p *ReconcileProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *ReconcileProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.reconcile(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reconcile(ctx)
		}
	}
}

func (p *ReconcileProcessor) reconcile(ctx context.Context) {
	totals, err := p.store.Recompute(ctx)
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "Reconcile pass failed", "error", err)
		return
	}
	slog.DebugContext(ctx, "Reconcile pass completed", "categories", len(totals))
}
