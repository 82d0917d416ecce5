// Package observe provides application-wide observability primitives for
// the decoder server: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all decoder metrics.
const meterName = "github.com/MrWong99/gofsgdecoder"

// Metrics holds all OpenTelemetry metric instruments for the decoder server.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Frame-engine stage latency histograms (spec.md §4.2) ---

	// AcousticScoreDuration tracks stage b (senone scoring) latency per frame.
	AcousticScoreDuration metric.Float64Histogram

	// HMMEvalDuration tracks stage c (Viterbi evaluation) latency per frame.
	HMMEvalDuration metric.Float64Histogram

	// PropagateDuration tracks stage d-f (prune/propagate/null-closure/
	// cross-word) latency per frame.
	PropagateDuration metric.Float64Histogram

	// LatticeBuildDuration tracks lattice.Build latency.
	LatticeBuildDuration metric.Float64Histogram

	// --- Beam/active-set distributions ---

	// ActiveHMMCount records the number of active pnodes evaluated per frame
	// (spec.md §4.2c's maxhmmpf comparison population).
	ActiveHMMCount metric.Int64Histogram

	// BeamFactor records the dynamic beam-narrowing factor applied per frame
	// (1.0 unless maxhmmpf is exceeded, spec.md §4.2c).
	BeamFactor metric.Float64Histogram

	// --- Counters ---

	// FramesDecoded counts frame-engine Step calls that returned a ready
	// frame, by decoder name.
	FramesDecoded metric.Int64Counter

	// UtterancesFinished counts Finish calls, with a "hyp" attribute of
	// "ok" or "none" (spec.md §7, "No hypothesis" is an expected outcome,
	// not an error).
	UtterancesFinished metric.Int64Counter

	// LatticeBuilds counts lattice.Build invocations, with a "status"
	// attribute of "ok" or "error".
	LatticeBuilds metric.Int64Counter

	// FSGSwitches counts fsgset.Manager.Select calls that succeeded.
	FSGSwitches metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// stageLatencyBuckets defines histogram bucket boundaries (in seconds)
// optimised for sub-frame decoder stage latencies, which run on the order
// of microseconds to low milliseconds rather than the seconds-scale network
// calls a provider-backed pipeline would see.
var stageLatencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AcousticScoreDuration, err = m.Float64Histogram("gofsgdecoder.acoustic_score.duration",
		metric.WithDescription("Latency of per-frame senone scoring (frame engine stage b)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HMMEvalDuration, err = m.Float64Histogram("gofsgdecoder.hmm_eval.duration",
		metric.WithDescription("Latency of per-frame HMM Viterbi evaluation (frame engine stage c)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PropagateDuration, err = m.Float64Histogram("gofsgdecoder.propagate.duration",
		metric.WithDescription("Latency of per-frame prune/propagate/null-closure/cross-word (frame engine stages d-f)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageLatencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LatticeBuildDuration, err = m.Float64Histogram("gofsgdecoder.lattice_build.duration",
		metric.WithDescription("Latency of lattice construction from the history table."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageLatencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ActiveHMMCount, err = m.Int64Histogram("gofsgdecoder.active_hmm.count",
		metric.WithDescription("Number of active pnodes evaluated per frame."),
	); err != nil {
		return nil, err
	}
	if met.BeamFactor, err = m.Float64Histogram("gofsgdecoder.beam_factor",
		metric.WithDescription("Dynamic beam-narrowing factor applied per frame."),
	); err != nil {
		return nil, err
	}

	if met.FramesDecoded, err = m.Int64Counter("gofsgdecoder.frames_decoded",
		metric.WithDescription("Total frame-engine Step calls that processed a ready frame, by decoder name."),
	); err != nil {
		return nil, err
	}
	if met.UtterancesFinished, err = m.Int64Counter("gofsgdecoder.utterances_finished",
		metric.WithDescription("Total Finish calls, by hypothesis outcome (ok/none)."),
	); err != nil {
		return nil, err
	}
	if met.LatticeBuilds, err = m.Int64Counter("gofsgdecoder.lattice_builds",
		metric.WithDescription("Total lattice.Build invocations, by status (ok/error)."),
	); err != nil {
		return nil, err
	}
	if met.FSGSwitches, err = m.Int64Counter("gofsgdecoder.fsg_switches",
		metric.WithDescription("Total successful grammar switches (fsgset.Manager.Select)."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("gofsgdecoder.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFrame is a convenience method that records one frame's per-stage
// latencies and active-set size in a single call, with decoder as an
// attribute on every instrument.
func (m *Metrics) RecordFrame(ctx context.Context, decoder string, acousticScoreSecs, hmmEvalSecs, propagateSecs float64, activeHMMs int64, beamFactor float64) {
	attrs := metric.WithAttributes(attribute.String("decoder", decoder))
	m.AcousticScoreDuration.Record(ctx, acousticScoreSecs, attrs)
	m.HMMEvalDuration.Record(ctx, hmmEvalSecs, attrs)
	m.PropagateDuration.Record(ctx, propagateSecs, attrs)
	m.ActiveHMMCount.Record(ctx, activeHMMs, attrs)
	m.BeamFactor.Record(ctx, beamFactor, attrs)
	m.FramesDecoded.Add(ctx, 1, attrs)
}

// RecordUtteranceFinished is a convenience method that records a Finish call
// with hasHyp indicating whether a hypothesis was available.
func (m *Metrics) RecordUtteranceFinished(ctx context.Context, decoder string, hasHyp bool) {
	status := "none"
	if hasHyp {
		status = "ok"
	}
	m.UtterancesFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decoder", decoder),
		attribute.String("hyp", status),
	))
}

// RecordLatticeBuild is a convenience method that records a lattice.Build
// call's duration and outcome.
func (m *Metrics) RecordLatticeBuild(ctx context.Context, decoder string, durationSecs float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.LatticeBuildDuration.Record(ctx, durationSecs, metric.WithAttributes(attribute.String("decoder", decoder)))
	m.LatticeBuilds.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decoder", decoder),
		attribute.String("status", status),
	))
}

// RecordFSGSwitch is a convenience method that records a successful grammar
// switch.
func (m *Metrics) RecordFSGSwitch(ctx context.Context, decoder, fsgName string) {
	m.FSGSwitches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("decoder", decoder),
		attribute.String("fsg", fsgName),
	))
}
