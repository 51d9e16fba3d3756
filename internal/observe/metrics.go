// Package observe holds the OpenTelemetry metric instruments for the order
// pipeline and the provider setup that exposes them to Prometheus.
//
// Tests should build a [Metrics] with [NewMetrics] over a private
// MeterProvider; production code uses [DefaultMetrics] once [InitProvider]
// has registered the global provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/joseph-ayodele/voice-orders"

// Stage names used as the "stage" attribute.
const (
	StageTranscribe = "transcribe"
	StageParse      = "parse"
	StageMatch      = "match"
)

// Metrics holds every instrument the service records. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// StageDuration tracks pipeline stage latency. Attributes: stage, status.
	StageDuration metric.Float64Histogram

	// StageRuns counts stage executions. Attributes: stage, status.
	StageRuns metric.Int64Counter

	// MatchOutcomes counts per-item match results. Attribute: outcome
	// (matched | unmatched).
	MatchOutcomes metric.Int64Counter

	// ExtractedItems counts line items produced by the phrase extractor.
	ExtractedItems metric.Int64Counter

	// QueueDepth tracks jobs waiting in the background queue.
	QueueDepth metric.Int64UpDownCounter

	// RPCDuration tracks gRPC handler latency. Attributes: method, code.
	RPCDuration metric.Float64Histogram
}

// latencyBuckets are in seconds; transcription and LLM calls dominate.
var latencyBuckets = []float64{
	0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("voiceorders.stage.duration",
		metric.WithDescription("Latency of order pipeline stages."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageRuns, err = m.Int64Counter("voiceorders.stage.runs",
		metric.WithDescription("Pipeline stage executions by stage and status."),
	); err != nil {
		return nil, err
	}
	if met.MatchOutcomes, err = m.Int64Counter("voiceorders.match.outcomes",
		metric.WithDescription("Line items matched or left unmatched against article history."),
	); err != nil {
		return nil, err
	}
	if met.ExtractedItems, err = m.Int64Counter("voiceorders.extract.items",
		metric.WithDescription("Line items extracted from order text."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("voiceorders.queue.depth",
		metric.WithDescription("Audio orders waiting for background processing."),
	); err != nil {
		return nil, err
	}
	if met.RPCDuration, err = m.Float64Histogram("voiceorders.rpc.duration",
		metric.WithDescription("gRPC handler latency by method and status code."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide instance built on the global
// MeterProvider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records one stage execution and its latency.
func (m *Metrics) RecordStage(ctx context.Context, stage string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	m.StageRuns.Add(ctx, 1, attrs)
	m.StageDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordMatch counts one item outcome.
func (m *Metrics) RecordMatch(ctx context.Context, matched bool) {
	if m == nil {
		return
	}
	outcome := "unmatched"
	if matched {
		outcome = "matched"
	}
	m.MatchOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordExtracted(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ExtractedItems.Add(ctx, int64(n))
}

// QueueDelta moves the queue depth gauge by delta.
func (m *Metrics) QueueDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}

// RecordRPC records the latency of one unary call.
func (m *Metrics) RecordRPC(ctx context.Context, method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("code", code),
	))
}
