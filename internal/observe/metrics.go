// Package observe provides application-wide observability primitives for
// vibeline: OpenTelemetry metrics, tracing, and a trace-aware structured
// logger.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that batch runs can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vibeline metrics.
const meterName = "github.com/MrWong99/vibeline"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// GenerationDuration tracks backend generation latency per plugin. Use
	// with attributes:
	//   attribute.String("plugin", ...), attribute.String("model", ...)
	GenerationDuration metric.Float64Histogram

	// CommandDuration tracks post-generation command latency per plugin.
	CommandDuration metric.Float64Histogram

	// TranscriptDuration tracks end-to-end processing of one transcript.
	TranscriptDuration metric.Float64Histogram

	// --- Counters ---

	// Activations counts plugin activations. Use with attribute:
	//   attribute.String("plugin", ...)
	Activations metric.Int64Counter

	// GenerationResults counts per-plugin outcomes. Use with attributes:
	//   attribute.String("plugin", ...), attribute.String("status", ...)
	GenerationResults metric.Int64Counter

	// CommandRuns counts post-generation commands. Use with attributes:
	//   attribute.String("plugin", ...), attribute.String("status", ...)
	CommandRuns metric.Int64Counter

	// Corrections counts vocabulary corrections (changed lines).
	Corrections metric.Int64Counter

	// Tokens counts backend token usage. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", "prompt"|"completion")
	Tokens metric.Int64Counter

	// Transcripts counts processed transcripts by status.
	Transcripts metric.Int64Counter

	// --- Gauges ---

	// ActiveTranscripts tracks transcripts currently being processed.
	ActiveTranscripts metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// local and hosted LLM generation, which routinely takes tens of seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.GenerationDuration, err = m.Float64Histogram("vibeline.generation.duration",
		metric.WithDescription("Latency of plugin artifact generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CommandDuration, err = m.Float64Histogram("vibeline.command.duration",
		metric.WithDescription("Latency of post-generation commands."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptDuration, err = m.Float64Histogram("vibeline.transcript.duration",
		metric.WithDescription("End-to-end processing time of one transcript."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Activations, err = m.Int64Counter("vibeline.plugin.activations",
		metric.WithDescription("Total plugin activations by plugin."),
	); err != nil {
		return nil, err
	}
	if met.GenerationResults, err = m.Int64Counter("vibeline.generation.results",
		metric.WithDescription("Per-plugin generation outcomes by plugin and status."),
	); err != nil {
		return nil, err
	}
	if met.CommandRuns, err = m.Int64Counter("vibeline.command.runs",
		metric.WithDescription("Post-generation command runs by plugin and status."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("vibeline.vocabulary.corrections",
		metric.WithDescription("Transcript lines changed by vocabulary correction."),
	); err != nil {
		return nil, err
	}
	if met.Tokens, err = m.Int64Counter("vibeline.llm.tokens",
		metric.WithDescription("Backend token usage by model and kind."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("vibeline.transcripts",
		metric.WithDescription("Processed transcripts by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTranscripts, err = m.Int64UpDownCounter("vibeline.active_transcripts",
		metric.WithDescription("Number of transcripts currently being processed."),
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

// RecordActivation records one plugin activation.
func (m *Metrics) RecordActivation(ctx context.Context, plugin string) {
	m.Activations.Add(ctx, 1, metric.WithAttributes(attribute.String("plugin", plugin)))
}

// RecordGeneration records the latency of one backend generation.
func (m *Metrics) RecordGeneration(ctx context.Context, plugin, model string, d time.Duration) {
	m.GenerationDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("plugin", plugin),
			attribute.String("model", model),
		),
	)
}

// RecordGenerationResult records a per-plugin outcome.
func (m *Metrics) RecordGenerationResult(ctx context.Context, plugin, status string) {
	m.GenerationResults.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("plugin", plugin),
			attribute.String("status", status),
		),
	)
}

// RecordCommand records a post-generation command run and its latency.
func (m *Metrics) RecordCommand(ctx context.Context, plugin, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("status", status),
	)
	m.CommandRuns.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordTokens records prompt and completion token usage for model.
func (m *Metrics) RecordTokens(ctx context.Context, model string, prompt, completion int) {
	if prompt > 0 {
		m.Tokens.Add(ctx, int64(prompt), metric.WithAttributes(
			attribute.String("model", model), attribute.String("kind", "prompt")))
	}
	if completion > 0 {
		m.Tokens.Add(ctx, int64(completion), metric.WithAttributes(
			attribute.String("model", model), attribute.String("kind", "completion")))
	}
}

// RecordCorrections records n corrected lines.
func (m *Metrics) RecordCorrections(ctx context.Context, n int) {
	if n > 0 {
		m.Corrections.Add(ctx, int64(n))
	}
}

// RecordTranscript records a finished transcript and its processing time.
func (m *Metrics) RecordTranscript(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.Transcripts.Add(ctx, 1, attrs)
	m.TranscriptDuration.Record(ctx, d.Seconds(), attrs)
}
