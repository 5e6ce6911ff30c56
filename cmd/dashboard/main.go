package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"budgetdash/internal/cli"
	apphttp "budgetdash/internal/http"
	"budgetdash/internal/localstore"
	"budgetdash/internal/log"
	"budgetdash/internal/metrics"
	"budgetdash/internal/syncclient"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentDashboard)

	local, err := localstore.OpenSQLite(cfg.LocalStorePath)
	if err != nil {
		cli.Fatal(logger, "Failed to open local store", err, "path", cfg.LocalStorePath)
	}
	defer local.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	client, err := syncclient.New(context.Background(), syncclient.Config{
		Endpoint: cfg.LedgerEndpoint,
		Mode:     syncclient.Mode(cfg.SyncMode),
		Timeout:  cfg.SyncTimeout,
	}, local, syncclient.WithLogger(logger), syncclient.WithMetrics(m))
	if err != nil {
		cli.Fatal(logger, "Failed to initialize sync client", err)
	}
	logger.Info("Sync client ready", log.FieldMode, client.Mode(), log.FieldEndpoint, client.Endpoint())

	srv := apphttp.NewDashboardServer(":"+cfg.DashboardPort, client,
		apphttp.WithLogger(logger),
		apphttp.WithMetrics(m),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.SyncTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting dashboard server", "port", cfg.DashboardPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.DashboardPort)
	}

	<-ctx.Done()
	logger.Info("Dashboard stopped gracefully")
}
