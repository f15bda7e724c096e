// Package observe provides observability primitives for the voxgate server:
// OpenTelemetry metrics with a Prometheus exporter bridge so the standard
// /metrics endpoint keeps working.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxgate metrics.
const meterName = "github.com/MrWong99/voxgate"

// Metrics holds all OpenTelemetry metric instruments for the server.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ClassifyDuration tracks per-frame classification latency. Must stay
	// far below one frame duration for real-time streams.
	ClassifyDuration metric.Float64Histogram

	// FramesProcessed counts classified frames. Use with attribute:
	//   attribute.String("decision", "speech"|"noise")
	FramesProcessed metric.Int64Counter

	// Events counts debounced events. Use with attribute:
	//   attribute.String("event", ...)
	Events metric.Int64Counter

	// FrameErrors counts rejected frames (wrong length, bad codec payload).
	FrameErrors metric.Int64Counter

	// ActiveSessions tracks the number of live stream sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// classifyBuckets defines histogram bucket boundaries (in seconds) sized for
// sub-frame classification latencies.
var classifyBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ClassifyDuration, err = m.Float64Histogram("voxgate.classify.duration",
		metric.WithDescription("Latency of a single frame classification."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(classifyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesProcessed, err = m.Int64Counter("voxgate.frames.processed",
		metric.WithDescription("Total classified frames by decision."),
	); err != nil {
		return nil, err
	}
	if met.Events, err = m.Int64Counter("voxgate.events",
		metric.WithDescription("Total debounced speech/noise events by type."),
	); err != nil {
		return nil, err
	}
	if met.FrameErrors, err = m.Int64Counter("voxgate.frames.errors",
		metric.WithDescription("Total rejected input frames."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxgate.active_sessions",
		metric.WithDescription("Number of live stream sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// global OTel meter provider, creating it on first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// Instrument creation only fails on malformed names, which is a
			// programming error caught by the observe tests.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordFrame records one classified frame with its raw decision and the
// classification latency in seconds.
func (m *Metrics) RecordFrame(ctx context.Context, speech bool, seconds float64) {
	decision := "noise"
	if speech {
		decision = "speech"
	}
	m.FramesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
	m.ClassifyDuration.Record(ctx, seconds)
}

// RecordEvent records one debounced event by name. EventNone is not
// recorded.
func (m *Metrics) RecordEvent(ctx context.Context, event string) {
	m.Events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
