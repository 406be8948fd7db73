package outbox

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"example.com/timesheet/internal/events"
)

func TestObserveDLQCountsOutcomesPerEventType(t *testing.T) {
	entry := dlqEntry{ID: 1, EventType: events.TypeProfileChanged, RetryCount: 4}
	replayed := dlqTransitions.WithLabelValues(events.TypeProfileChanged, dlqOutcomeReplayed)
	quarantined := dlqTransitions.WithLabelValues(events.TypeProfileChanged, dlqOutcomeQuarantined)
	beforeReplayed := testutil.ToFloat64(replayed)
	beforeQuarantined := testutil.ToFloat64(quarantined)
	beforeSamples := quarantineSamples(t)

	observeDLQ(entry, dlqOutcomeReplayed)
	require.InDelta(t, beforeReplayed+1, testutil.ToFloat64(replayed), 0.0001)
	require.Equal(t, beforeSamples, quarantineSamples(t), "only quarantines feed the retry histogram")

	observeDLQ(entry, dlqOutcomeQuarantined)
	require.InDelta(t, beforeQuarantined+1, testutil.ToFloat64(quarantined), 0.0001)
	require.Equal(t, beforeSamples+1, quarantineSamples(t))
}

func quarantineSamples(t *testing.T) uint64 {
	t.Helper()

	metric := &dto.Metric{}
	require.NoError(t, dlqQuarantineRetries.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}
