package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportGenerations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "reports",
		Name:      "generations_total",
		Help:      "Report generations by outcome.",
	}, []string{"outcome"})
	reportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timesheet",
		Subsystem: "reports",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of a single factory report generation.",
		Buckets:   prometheus.DefBuckets,
	})
	reportLastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timesheet",
		Subsystem: "reports",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful report generation.",
	})
	shiftSubmittedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timesheet",
		Subsystem: "persistence",
		Name:      "last_shift_submitted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent shift persisted.",
	})
	correctionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "persistence",
		Name:      "corrections_total",
		Help:      "Position corrections appended.",
	})
)

func init() {
	prometheus.MustRegister(reportGenerations, reportDuration, reportLastSuccess, shiftSubmittedGauge, correctionsTotal)
}

// RecordReportGenerated records a finished generation attempt.
func RecordReportGenerated(elapsed time.Duration, err error) {
	reportDuration.Observe(elapsed.Seconds())
	if err != nil {
		reportGenerations.WithLabelValues("failure").Inc()
		return
	}
	reportGenerations.WithLabelValues("success").Inc()
	reportLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordShiftSubmitted updates the shift persistence watermark gauge.
func RecordShiftSubmitted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	shiftSubmittedGauge.Set(float64(ts.Unix()))
}

// RecordCorrection counts an appended correction.
func RecordCorrection() {
	correctionsTotal.Inc()
}
