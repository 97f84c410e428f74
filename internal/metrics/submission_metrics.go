package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels for a finished submission cycle.
const (
	OutcomeSuccess     = "success"
	OutcomeApplication = "application_error"
	OutcomeTransport   = "transport_error"
)

// SubmissionMetrics records what happens to submission cycles.
type SubmissionMetrics struct {
	startedCounter    metric.Int64Counter
	succeededCounter  metric.Int64Counter
	failedCounter     metric.Int64Counter
	supersededCounter metric.Int64Counter
	linesCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram
	activeGauge       metric.Int64UpDownCounter
}

// NewSubmissionMetrics creates the instruments on mp, or on the global
// provider when mp is nil.
func NewSubmissionMetrics(mp metric.MeterProvider) (*SubmissionMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("readme-console")

	started, err := meter.Int64Counter(
		"readme_console.submissions.started",
		metric.WithDescription("Total number of submissions started"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}
	succeeded, err := meter.Int64Counter(
		"readme_console.submissions.succeeded",
		metric.WithDescription("Submissions that produced a document"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(
		"readme_console.submissions.failed",
		metric.WithDescription("Submissions that ended with an error"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}
	superseded, err := meter.Int64Counter(
		"readme_console.submissions.superseded",
		metric.WithDescription("Submissions cancelled by a newer one"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}
	lines, err := meter.Int64Counter(
		"readme_console.progress.lines",
		metric.WithDescription("Progress log lines received"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"readme_console.submission.duration",
		metric.WithDescription("Time from submit until the response settled"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter(
		"readme_console.submissions.active",
		metric.WithDescription("Submissions currently in flight"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	return &SubmissionMetrics{
		startedCounter:    started,
		succeededCounter:  succeeded,
		failedCounter:     failed,
		supersededCounter: superseded,
		linesCounter:      lines,
		durationHistogram: duration,
		activeGauge:       active,
	}, nil
}

// RecordStarted records a new submission.
func (m *SubmissionMetrics) RecordStarted(ctx context.Context, hasFile, hasRepoURL bool) {
	m.startedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("submission.has_file", hasFile),
		attribute.Bool("submission.has_repo_url", hasRepoURL),
	))
	m.activeGauge.Add(ctx, 1)
}

// RecordSettled records a cycle whose response arrived while it was current.
func (m *SubmissionMetrics) RecordSettled(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if outcome == OutcomeSuccess {
		m.succeededCounter.Add(ctx, 1, attrs)
	} else {
		m.failedCounter.Add(ctx, 1, attrs)
	}
	m.durationHistogram.Record(ctx, duration.Seconds(), attrs)
	m.activeGauge.Add(ctx, -1)
}

// RecordSuperseded records a cycle cancelled before it settled.
func (m *SubmissionMetrics) RecordSuperseded(ctx context.Context) {
	m.supersededCounter.Add(ctx, 1)
	m.activeGauge.Add(ctx, -1)
}

// RecordLine records one progress line appended to a log.
func (m *SubmissionMetrics) RecordLine(ctx context.Context) {
	m.linesCounter.Add(ctx, 1)
}
