package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestSubmissionMetrics_Creation(t *testing.T) {
	t.Run("global provider", func(t *testing.T) {
		m, err := NewSubmissionMetrics(nil)
		require.NoError(t, err)
		assert.NotNil(t, m.startedCounter)
		assert.NotNil(t, m.durationHistogram)
		assert.NotPanics(t, func() {
			m.RecordStarted(context.Background(), true, false)
			m.RecordSettled(context.Background(), OutcomeSuccess, time.Second)
		})
	})
}

func TestSubmissionMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewSubmissionMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordStarted(ctx, false, true)
	m.RecordStarted(ctx, true, false)
	m.RecordStarted(ctx, true, true)
	m.RecordLine(ctx)
	m.RecordLine(ctx)
	m.RecordSettled(ctx, OutcomeSuccess, 2*time.Second)
	m.RecordSettled(ctx, OutcomeTransport, time.Second)
	m.RecordSuperseded(ctx)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(3), sums["readme_console.submissions.started"])
	assert.Equal(t, int64(1), sums["readme_console.submissions.succeeded"])
	assert.Equal(t, int64(1), sums["readme_console.submissions.failed"])
	assert.Equal(t, int64(1), sums["readme_console.submissions.superseded"])
	assert.Equal(t, int64(2), sums["readme_console.progress.lines"])
	assert.Equal(t, int64(0), sums["readme_console.submissions.active"])
}
