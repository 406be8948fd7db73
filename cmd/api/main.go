package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/timesheet/internal/api"
	"example.com/timesheet/internal/auth"
	"example.com/timesheet/internal/bootstrap"
	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/outbox"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/shifts"
	httptransport "example.com/timesheet/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log, err := bootstrap.Logger(cfg, "timesheet-api")
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

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		outbox.WithLogger(log.With("component", "outbox")))
	go dispatcher.Start(ctx)

	generator, err := bootstrap.ReportGenerator(cfg, repo, log.With("component", "report"))
	if err != nil {
		log.Fatal("report generator", "error", err)
	}
	service := shifts.NewService(repo, bootstrap.Linker(cfg),
		shifts.WithClock(bootstrap.Clock(cfg)), shifts.WithLogger(log.With("component", "shifts")))

	mux := http.NewServeMux()
	api.NewHandler(service, generator, log.With("component", "api")).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(httptransport.DefaultConfig(cfg.HTTPAddress),
		authMiddleware.Wrap(requestLogger(log, mux)), log)

	if err := server.ListenAndServe(ctx); err != nil {
		log.Error("server error", "error", err)
		stop()
	}
	dispatcher.Wait()
}

func requestLogger(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}
