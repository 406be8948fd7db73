package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of one dead-letter pass over a correction or profile event.
const (
	dlqOutcomeReplayed    = "replayed"
	dlqOutcomeRescheduled = "rescheduled"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "dlq",
		Name:      "transitions_total",
		Help:      "Dead-lettered timesheet events by event type and what the DLQ manager did with them.",
	}, []string{"event_type", "outcome"})

	dlqQuarantineRetries = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timesheet",
		Subsystem: "dlq",
		Name:      "quarantine_retries",
		Help:      "Replay attempts an event went through before it was quarantined.",
		Buckets:   prometheus.LinearBuckets(0, 1, 8),
	})

	// state is "waiting" for entries still eligible for replay, "quarantined" otherwise.
	dlqEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "timesheet",
		Subsystem: "dlq",
		Name:      "entries",
		Help:      "Rows currently held in outbox_dlq.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(dlqTransitions, dlqQuarantineRetries, dlqEntries)
}

func observeDLQ(entry dlqEntry, outcome string) {
	dlqTransitions.WithLabelValues(entry.EventType, outcome).Inc()
	if outcome == dlqOutcomeQuarantined {
		dlqQuarantineRetries.Observe(float64(entry.RetryCount))
	}
}

// refreshDLQEntries recounts outbox_dlq. A failed count leaves the previous values.
func refreshDLQEntries(ctx context.Context, pool *pgxpool.Pool) error {
	var waiting, quarantined int
	err := pool.QueryRow(ctx, `SELECT
            COUNT(*) FILTER (WHERE quarantined_at IS NULL),
            COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
          FROM outbox_dlq`).Scan(&waiting, &quarantined)
	if err != nil {
		return err
	}
	dlqEntries.WithLabelValues("waiting").Set(float64(waiting))
	dlqEntries.WithLabelValues("quarantined").Set(float64(quarantined))
	return nil
}
