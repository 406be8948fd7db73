package consumer

import "github.com/prometheus/client_golang/prometheus"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Number of Kafka messages successfully handled.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Number of handler errors grouped by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Number of decode failures per topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successfully processed message per topic.",
	}, []string{"topic"})

	reportArtifactsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "report_artifacts_total",
		Help:      "Factory reports produced for requests, by outcome.",
	}, []string{"outcome"})

	duplicateRequestCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "timesheet",
		Subsystem: "consumer",
		Name:      "duplicate_report_requests_total",
		Help:      "Redelivered report requests skipped because they already ran.",
	})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge,
		reportArtifactsCounter, duplicateRequestCounter)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordReportRun(succeeded, failed int) {
	reportArtifactsCounter.WithLabelValues("archived").Add(float64(succeeded))
	reportArtifactsCounter.WithLabelValues("failed").Add(float64(failed))
}

func recordDuplicateRequest() {
	duplicateRequestCounter.Inc()
}
