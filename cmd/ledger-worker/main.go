package main

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"budgetdash/internal/amqp"
	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/ledger"
	"budgetdash/internal/log"
	"budgetdash/internal/metrics"
	"budgetdash/internal/services"
	"budgetdash/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)
	logger.Info("Starting ledger-worker")
	if backend.Type(cfg.DataBackend) == backend.Memory {
		logger.Warn("Memory backend is private to this process; totals written here are not shared")
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	res, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, log.FieldBackend, cfg.DataBackend)
	}
	defer res.Close()

	m := metrics.New(prometheus.NewRegistry())
	store := ledger.New(res.Backend, ledger.WithLogger(logger), ledger.WithMetrics(m))
	recomputer := worker.NewRecomputeWorker(store, m)

	// On startup, repair totals left stale while the worker was down
	if err := recomputer.StartupRecompute(ctx); err != nil {
		logger.Error("Startup recompute failed", log.FieldError, err)
		// Don't exit - the periodic pass retries
	}

	processor := services.NewReconcileProcessor(store, services.ReconcileProcessorConfig{
		PollInterval: cfg.ReconcileInterval,
	})
	if err := processor.Start(ctx); err != nil {
		cli.Fatal(logger, "Failed to start reconcile processor", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer consumer.Close()
		g.Go(func() error {
			err := consumer.ConsumeWithRetry(gctx, recomputer.HandleExpenseAppended)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	if awaitStop(ctx, gctx) {
		logger.Info("Shutdown signal received")
	} else {
		logger.Warn("Message consumer stopped, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := processor.Stop(shutdownCtx); err != nil {
		logger.Warn("Reconcile processor stop failed", log.FieldError, err)
	}
	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
	}
	logger.Info("Worker shutdown complete", "reconcile_runs", processor.Runs())
}

// awaitStop blocks until the signal context or the consumer group is done.
// It reports true when a signal caused the stop.
func awaitStop(signal, group context.Context) bool {
	<-group.Done()
	return signal.Err() != nil
}
