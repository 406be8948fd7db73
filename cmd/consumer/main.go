package main

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/timesheet/internal/bootstrap"
	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/consumer"
	"example.com/timesheet/internal/events"
	"example.com/timesheet/internal/report"
	httptransport "example.com/timesheet/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log, err := bootstrap.Logger(cfg, "timesheet-consumer")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, repo, err := bootstrap.Postgres(ctx, cfg)
	if err != nil {
		log.Fatal("postgres unavailable", "error", err)
	}
	defer pool.Close()

	generator, err := bootstrap.ReportGenerator(cfg, repo, log.With("component", "report"))
	if err != nil {
		log.Fatal("report generator", "error", err)
	}
	batch := report.NewBatch(generator, repo, cfg.ReportConcurrency, log.With("component", "batch"))
	routes := consumer.Routes{
		events.TypeReportRequested: consumer.NewReportRequestHandler(batch, cfg.ReportArchiveDir,
			consumer.NewPostgresRunLog(pool), log.With("component", "report-requests")),
	}

	metricsSrv := httptransport.NewServer(httptransport.DefaultConfig(cfg.MetricsAddress), promhttp.Handler(), log)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsSrv.ListenAndServe(ctx); err != nil {
			log.Error("metrics server error", "error", err)
		}
	}()

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:       cfg.KafkaBrokers,
			GroupID:       cfg.ConsumerGroupID,
			Topic:         topic,
			MinBytes:      1,
			MaxBytes:      10e6,
			RetentionTime: 7 * 24 * time.Hour,
		})
		proc := consumer.NewProcessor(reader, routes, consumer.WithLogger(log.With("topic", topic)))

		wg.Add(1)
		go func(topic string, r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			log.Info("consumer started", "topic", topic, "group", cfg.ConsumerGroupID)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer stopped", "topic", topic, "error", err)
			}
		}(topic, reader)
	}

	<-ctx.Done()
	log.Info("consumer shutdown requested")
	wg.Wait()
}
