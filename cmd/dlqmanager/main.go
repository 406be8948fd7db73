package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/timesheet/internal/bootstrap"
	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/outbox"
	httptransport "example.com/timesheet/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log, err := bootstrap.Logger(cfg, "timesheet-dlq")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, _, err := bootstrap.Postgres(ctx, cfg)
	if err != nil {
		log.Fatal("postgres unavailable", "error", err)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, log)

	metricsSrv := httptransport.NewServer(httptransport.DefaultConfig(cfg.MetricsAddress), promhttp.Handler(), log)
	metricsDone := make(chan struct{})
	go func() {
		defer close(metricsDone)
		if err := metricsSrv.ListenAndServe(ctx); err != nil {
			log.Error("metrics server error", "error", err)
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	log.Info("dlq manager started", "interval", cfg.DLQPollInterval, "max_retries", cfg.DLQMaxRetries)
	for {
		select {
		case <-ctx.Done():
			log.Info("dlq manager received shutdown signal")
			<-metricsDone
			return
		case <-ticker.C:
			processed, err := manager.RunOnce(ctx, cfg.DLQBatchSize)
			if err != nil {
				log.Error("dlq manager error", "error", err)
			} else if processed > 0 {
				log.Info("dlq manager processed entries", "count", processed)
			}
		}
	}
}
