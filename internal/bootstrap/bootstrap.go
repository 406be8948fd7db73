// Package bootstrap assembles the components shared by the timesheet binaries.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/timesheet/internal/aggregation"
	"example.com/timesheet/internal/config"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/evidence"
	"example.com/timesheet/internal/layout"
	persistence "example.com/timesheet/internal/persistence/postgres"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/render/xlsx"
	"example.com/timesheet/internal/report"
	"example.com/timesheet/internal/resolution"
)

// Clock returns the wall clock in the configured business timezone.
func Clock(cfg config.Config) func() time.Time {
	loc := cfg.Location()
	return func() time.Time { return time.Now().In(loc) }
}

// Linker builds the evidence linker from configuration.
func Linker(cfg config.Config) *evidence.Linker {
	return evidence.NewLinker(cfg.DriveRootURL, cfg.EvidencePlaceholderURL)
}

// Postgres opens the pool and the repository over it.
func Postgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, *persistence.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, persistence.NewRepository(pool, persistence.WithLocation(cfg.Location())), nil
}

// ReportGenerator wires aggregation, layout and the xlsx serializer.
func ReportGenerator(cfg config.Config, store domain.SnapshotReader, l *logger.Logger) (*report.Generator, error) {
	layoutCfg, err := layout.LoadConfig(cfg.LayoutConfig)
	if err != nil {
		return nil, err
	}
	clock := Clock(cfg)
	agg := aggregation.New(store, resolution.NewResolver(clock), aggregation.WithLogger(l))
	builder := layout.NewBuilder(layoutCfg, Linker(cfg))
	return report.NewGenerator(agg, builder, xlsx.New(), cfg.ReportDir,
		report.WithClock(clock), report.WithLogger(l)), nil
}

// Logger builds the process logger for cfg.LogMode.
func Logger(cfg config.Config, service string) (*logger.Logger, error) {
	l, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.With("service", service), nil
}
