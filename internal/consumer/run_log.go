package consumer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Run summarises one processed report request.
type Run struct {
	RequestID   string
	RequestedBy int64
	Year        int
	Month       int
	Succeeded   int
	Failed      int
	ArchivePath string
	FinishedAt  time.Time
}

// RunLog remembers processed requests so redeliveries are skipped.
type RunLog interface {
	Seen(ctx context.Context, requestID string) (bool, error)
	Record(ctx context.Context, run Run) error
}

// PostgresRunLog stores runs in the report_runs table.
type PostgresRunLog struct {
	pool *pgxpool.Pool
}

// NewPostgresRunLog constructs a run log backed by the provided pool.
func NewPostgresRunLog(pool *pgxpool.Pool) *PostgresRunLog {
	return &PostgresRunLog{pool: pool}
}

// Seen reports whether requestID already ran.
func (l *PostgresRunLog) Seen(ctx context.Context, requestID string) (bool, error) {
	var seen bool
	err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM report_runs WHERE request_id = $1)`, requestID).Scan(&seen)
	return seen, err
}

// Record stores the run; recording the same request twice keeps the first row.
func (l *PostgresRunLog) Record(ctx context.Context, run Run) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO report_runs (request_id, requested_by, year, month, succeeded, failed, archive_path, finished_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (request_id) DO NOTHING`,
		run.RequestID,
		run.RequestedBy,
		run.Year,
		run.Month,
		run.Succeeded,
		run.Failed,
		run.ArchivePath,
		run.FinishedAt,
	)
	return err
}
